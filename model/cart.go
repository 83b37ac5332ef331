package model

// CartLine is a product held in the cart with its quantity. The product
// fields are flattened next to qty when encoded.
type CartLine struct {
	Product
	Qty int `json:"qty"`
}

// Subtotal is price * qty.
func (l CartLine) Subtotal() Amount {
	return l.Price.Mul(l.Qty)
}

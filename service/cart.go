package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"storefront-admin/model"
	"storefront-admin/storage"
)

// Cart is a client-only list of products with quantities, persisted under
// storage.KeyCart after every mutation. There is at most one line per
// product id and every quantity is at least 1.
type Cart struct {
	storage storage.Storage
	log     logrus.FieldLogger

	mu    sync.Mutex
	lines []model.CartLine
}

// NewCart restores the persisted cart. Missing or malformed data yields an
// empty cart.
func NewCart(ctx context.Context, st storage.Storage, log logrus.FieldLogger) *Cart {
	c := &Cart{storage: st, log: log.WithField("component", "cart")}
	c.lines = c.load(ctx)
	return c
}

func (c *Cart) load(ctx context.Context) []model.CartLine {
	raw, found, err := c.storage.GetItem(ctx, storage.KeyCart)
	if err != nil {
		c.log.WithError(err).Warn("could not read stored cart")
		return []model.CartLine{}
	}
	if !found || raw == "" {
		return []model.CartLine{}
	}

	var stored []model.CartLine
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		c.log.WithError(err).Warn("discarding malformed stored cart")
		return []model.CartLine{}
	}

	// merge duplicates and repair quantities written by older versions
	lines := make([]model.CartLine, 0, len(stored))
	index := make(map[int64]int, len(stored))
	for _, l := range stored {
		if l.Qty < 1 {
			l.Qty = 1
		}
		if i, ok := index[l.ID]; ok {
			lines[i].Qty += l.Qty
			continue
		}
		index[l.ID] = len(lines)
		lines = append(lines, l)
	}
	return lines
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []model.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.CartLine{}, c.lines...)
}

// Total is the sum of price * qty over all lines.
func (c *Cart) Total() model.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()

	var total model.Amount
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Count is the sum of quantities.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, l := range c.lines {
		n += l.Qty
	}
	return n
}

// Add increments the line for p.ID or appends a new line with qty 1.
func (c *Cart) Add(ctx context.Context, p model.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(p.ID); i >= 0 {
		c.lines[i].Qty++
	} else {
		c.lines = append(c.lines, model.CartLine{Product: p, Qty: 1})
	}
	return c.persistLocked(ctx)
}

func (c *Cart) Remove(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]model.CartLine, 0, len(c.lines))
	for _, l := range c.lines {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	c.lines = kept
	return c.persistLocked(ctx)
}

func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = []model.CartLine{}
	return c.persistLocked(ctx)
}

func (c *Cart) Increment(ctx context.Context, id int64) error {
	return c.setQty(ctx, id, func(q int) int { return q + 1 })
}

// Decrement lowers the quantity but never below 1; use Remove to drop a line.
func (c *Cart) Decrement(ctx context.Context, id int64) error {
	return c.setQty(ctx, id, func(q int) int { return q - 1 })
}

// UpdateQty sets the quantity, raising anything below 1 to 1.
func (c *Cart) UpdateQty(ctx context.Context, id int64, qty int) error {
	return c.setQty(ctx, id, func(int) int { return qty })
}

// setQty is a no-op for unknown ids.
func (c *Cart) setQty(ctx context.Context, id int64, next func(int) int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return nil
	}
	c.lines[i].Qty = max(1, next(c.lines[i].Qty))
	return c.persistLocked(ctx)
}

func (c *Cart) indexLocked(id int64) int {
	for i, l := range c.lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(c.lines)
	if err != nil {
		return err
	}
	if err := c.storage.SetItem(ctx, storage.KeyCart, string(data)); err != nil {
		c.log.WithError(err).Warn("could not persist cart")
		return err
	}
	return nil
}

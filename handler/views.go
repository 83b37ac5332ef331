package handler

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"storefront-admin/apiclient"
	"storefront-admin/model"
	"storefront-admin/service"
)

const maxUploadSize = 32 << 20

// --- request / response shapes ---
type categoryReq struct {
	Name string `json:"name"`
}

type productReq struct {
	Name       *string       `json:"name"`
	Price      *model.Amount `json:"price"`
	CategoryID *int64        `json:"category_id"`
}

type cartView struct {
	Lines []model.CartLine `json:"lines"`
	Total model.Amount     `json:"total"`
	Count int              `json:"count"`
}

type listView[T model.Record] struct {
	service.EntityState[T]
	Sorted []T `json:"sorted"`
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// parseQuery maps list parameters onto a model.Query. Parameters other
// than the known ones are passed on as filters.
func parseQuery(v url.Values) model.Query {
	q := model.Query{
		Sort:   v.Get("sort"),
		Order:  v.Get("order"),
		Search: v.Get("search"),
	}
	q.Page, _ = strconv.Atoi(v.Get("page"))
	q.Limit, _ = strconv.Atoi(v.Get("limit"))
	for k := range v {
		switch k {
		case "page", "limit", "sort", "order", "search":
			continue
		}
		if q.Filters == nil {
			q.Filters = map[string]string{}
		}
		q.Filters[k] = v.Get(k)
	}
	return q
}

// coerceQty turns a JSON number or numeric string into a quantity of at
// least 1. Anything else is 1.
func coerceQty(raw json.RawMessage) int {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 1
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 1
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return 1
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(f))
}

// --- Auth ---

// LoginView handles GET /auth/login
func (h *Handler) LoginView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":  h.session.State(),
		"redirect": r.URL.Query().Get("redirect"),
	})
}

// Login handles POST /auth/login
// body: { "email": "...", "password": "..." } (username is accepted for email)
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	user, err := h.session.Login(r.Context(), creds)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	next := r.URL.Query().Get("redirect")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		u, _ := h.router.Get(RouteDashboard).URL()
		next = u.String()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user, "redirect": next})
}

// Logout handles POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		h.log.WithError(err).Warn("logout")
	}
	writeJSON(w, http.StatusOK, h.session.State())
}

// --- Dashboard ---

// Root handles GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.redirect(w, r, Decision{Target: RouteDashboard})
}

// Dashboard handles GET /dashboard. It refreshes the profile; a failure
// ends the session and sends the caller back to login.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if err := h.session.FetchProfile(r.Context()); err != nil {
		d := Guard(MetaFor(RouteDashboard), h.session.IsAuthenticated(), r.URL.RequestURI())
		if d.Allowed() {
			writeAppErr(w, err)
			return
		}
		h.redirect(w, r, d)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": h.session.State(),
		"cart":    h.cartSnapshot(),
	})
}

// Notifications handles GET /dashboard/notifications
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	var items []service.Notification
	if h.feed != nil {
		items = h.feed.Recent()
	}
	if items == nil {
		items = []service.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}

// NotFound answers every unmatched path.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeErr(w, http.StatusNotFound, "page not found")
}

// --- Categories ---

// ListCategories handles GET /dashboard/categories/index?page=&limit=...
// Fetch failures are reported in the state's error field.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	h.categories.Fetch(r.Context(), parseQuery(r.URL.Query()))
	writeJSON(w, http.StatusOK, listView[model.Category]{h.categories.State(), h.categories.Sorted()})
}

// GetCategory handles GET /dashboard/categories/{id}
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	h.categories.FetchByID(r.Context(), pathID(r))
	writeJSON(w, http.StatusOK, h.categories.State())
}

// ValidateCategory handles GET /dashboard/categories/validate?name=&exclude_id=
func (h *Handler) ValidateCategory(w http.ResponseWriter, r *http.Request) {
	exclude, _ := strconv.ParseInt(r.URL.Query().Get("exclude_id"), 10, 64)
	if err := h.categories.ValidateName(r.URL.Query().Get("name"), exclude); err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// AddCategory handles POST /dashboard/categories/index
// body: { "name": "..." }
func (h *Handler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.categories.Add(r.Context(), service.CategoryPayload{Name: req.Name}); err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.categories.State())
}

// UpdateCategory handles PUT /dashboard/categories/{id}
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.categories.Update(r.Context(), pathID(r), service.CategoryPayload{Name: req.Name}); err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.categories.State())
}

// DeleteCategory handles DELETE /dashboard/categories/{id}
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), pathID(r)); err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.categories.State())
}

// --- Products ---

// ListProducts handles GET /dashboard/product/index?page=&limit=...
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.products.Fetch(r.Context(), parseQuery(r.URL.Query()))
	writeJSON(w, http.StatusOK, listView[model.Product]{h.products.State(), h.products.Sorted()})
}

// GetProduct handles GET /dashboard/product/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	h.products.FetchByID(r.Context(), pathID(r))
	writeJSON(w, http.StatusOK, h.products.State())
}

// productBody reads a product form of at most maxUploadSize bytes.
// Multipart bodies are forwarded as received; JSON bodies are encoded into
// a new form.
func productBody(w http.ResponseWriter, r *http.Request) (service.ProductBody, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		return service.EncodedProduct{Body: &apiclient.Multipart{
			ContentType: r.Header.Get("Content-Type"),
			Body:        raw,
		}}, nil
	}

	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return service.ProductPayload{Name: req.Name, Price: req.Price, CategoryID: req.CategoryID}, nil
}

// writeFormErr answers 413 for an oversized form and 400 otherwise.
func writeFormErr(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeErr(w, http.StatusRequestEntityTooLarge, "product form too large")
		return
	}
	writeErr(w, http.StatusBadRequest, "invalid product form")
}

// AddProduct handles POST /dashboard/product/index
// body: multipart form (name, price, category_id, picture) or JSON
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	body, err := productBody(w, r)
	if err != nil {
		writeFormErr(w, err)
		return
	}
	if err := h.products.Add(r.Context(), body); err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.products.State())
}

// UpdateProduct handles POST|PUT /dashboard/product/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	body, err := productBody(w, r)
	if err != nil {
		writeFormErr(w, err)
		return
	}
	if err := h.products.Update(r.Context(), pathID(r), body); err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.products.State())
}

// DeleteProduct handles DELETE /dashboard/product/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), pathID(r)); err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.products.State())
}

// --- Cart ---

func (h *Handler) cartSnapshot() cartView {
	return cartView{Lines: h.cart.Lines(), Total: h.cart.Total(), Count: h.cart.Count()}
}

// writeCart answers the cart snapshot. A persistence failure is logged by
// the cart and does not fail the request; the in-memory cart is current.
func (h *Handler) writeCart(w http.ResponseWriter, err error) {
	if err != nil {
		h.log.WithError(err).Warn("cart not persisted")
	}
	writeJSON(w, http.StatusOK, h.cartSnapshot())
}

// ShowCart handles GET /dashboard/cart
func (h *Handler) ShowCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cartSnapshot())
}

// AddToCart handles POST /dashboard/cart/items
// body: a product record, or { "id": 1 } for a product already loaded
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if p.ID == 0 {
		writeErr(w, http.StatusBadRequest, "id is required")
		return
	}
	if p.Name == "" {
		known, ok := h.knownProduct(p.ID)
		if !ok {
			writeErr(w, http.StatusNotFound, "product not found")
			return
		}
		p = known
	}
	h.writeCart(w, h.cart.Add(r.Context(), p))
}

// knownProduct looks id up in the product store's cached list and selection.
func (h *Handler) knownProduct(id int64) (model.Product, bool) {
	st := h.products.State()
	for _, p := range st.List {
		if p.ID == id {
			return p, true
		}
	}
	if st.Selected != nil && st.Selected.ID == id {
		return *st.Selected, true
	}
	return model.Product{}, false
}

// RemoveFromCart handles DELETE /dashboard/cart/items/{id}
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, h.cart.Remove(r.Context(), pathID(r)))
}

// IncrementCart handles POST /dashboard/cart/items/{id}/increment
func (h *Handler) IncrementCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, h.cart.Increment(r.Context(), pathID(r)))
}

// DecrementCart handles POST /dashboard/cart/items/{id}/decrement
func (h *Handler) DecrementCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, h.cart.Decrement(r.Context(), pathID(r)))
}

// UpdateCartQty handles PUT /dashboard/cart/items/{id}
// body: { "qty": 3 }
func (h *Handler) UpdateCartQty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Qty json.RawMessage `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	h.writeCart(w, h.cart.UpdateQty(r.Context(), pathID(r), coerceQty(req.Qty)))
}

// ClearCart handles DELETE /dashboard/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, h.cart.Clear(r.Context()))
}

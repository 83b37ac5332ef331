// Package handler is the routing surface of the admin application. Views
// answer JSON snapshots of the stores; actions call the stores and answer
// the updated snapshot or the structured error.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"storefront-admin/apperror"
	"storefront-admin/metrics"
	"storefront-admin/service"
)

// NotificationFeed exposes recent user-facing notifications.
type NotificationFeed interface {
	Recent() []service.Notification
}

// Deps are the stores the routes operate on.
type Deps struct {
	Session    service.SessionService
	Categories service.CategoryService
	Products   service.ProductService
	Cart       service.CartService
	Feed       NotificationFeed
	Logger     logrus.FieldLogger
}

// Handler is the HTTP layer that talks to the service stores.
type Handler struct {
	session    service.SessionService
	categories service.CategoryService
	products   service.ProductService
	cart       service.CartService
	feed       NotificationFeed
	log        logrus.FieldLogger

	router *mux.Router
}

// NewHandler returns a Handler instance
func NewHandler(d Deps) *Handler {
	log := d.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		session:    d.Session,
		categories: d.Categories,
		products:   d.Products,
		cart:       d.Cart,
		feed:       d.Feed,
		log:        log.WithField("component", "handler"),
	}
}

// Router returns a new router with every route registered.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	h.router = r
	r.Use(h.instrument, h.guard)
	r.NotFoundHandler = h.instrument(http.HandlerFunc(h.NotFound))

	// Auth
	r.HandleFunc("/auth/login", h.LoginView).Methods("GET").Name(RouteLogin)
	r.HandleFunc("/auth/login", h.Login).Methods("POST").Name(RouteLogin + ".submit")
	r.HandleFunc("/auth/logout", h.Logout).Methods("POST").Name("auth-logout")

	// Dashboard
	r.HandleFunc("/", h.Root).Methods("GET").Name(RouteRoot)
	r.HandleFunc("/dashboard", h.Dashboard).Methods("GET").Name(RouteDashboard)
	r.HandleFunc("/dashboard/notifications", h.Notifications).Methods("GET").Name(RouteDashboard + ".notifications")

	// Categories
	r.HandleFunc("/dashboard/categories/index", h.ListCategories).Methods("GET").Name(RouteCategories)
	r.HandleFunc("/dashboard/categories/index", h.AddCategory).Methods("POST").Name(RouteCategories + ".add")
	r.HandleFunc("/dashboard/categories/validate", h.ValidateCategory).Methods("GET").Name(RouteCategories + ".validate")
	r.HandleFunc("/dashboard/categories/{id:[0-9]+}", h.GetCategory).Methods("GET").Name(RouteCategories + ".show")
	r.HandleFunc("/dashboard/categories/{id:[0-9]+}", h.UpdateCategory).Methods("PUT").Name(RouteCategories + ".update")
	r.HandleFunc("/dashboard/categories/{id:[0-9]+}", h.DeleteCategory).Methods("DELETE").Name(RouteCategories + ".delete")

	// Products
	r.HandleFunc("/dashboard/product/index", h.ListProducts).Methods("GET").Name(RouteProducts)
	r.HandleFunc("/dashboard/product/index", h.AddProduct).Methods("POST").Name(RouteProducts + ".add")
	r.HandleFunc("/dashboard/product/{id:[0-9]+}", h.GetProduct).Methods("GET").Name(RouteProducts + ".show")
	r.HandleFunc("/dashboard/product/{id:[0-9]+}", h.UpdateProduct).Methods("POST", "PUT").Name(RouteProducts + ".update")
	r.HandleFunc("/dashboard/product/{id:[0-9]+}", h.DeleteProduct).Methods("DELETE").Name(RouteProducts + ".delete")

	// Cart
	r.HandleFunc("/dashboard/cart", h.ShowCart).Methods("GET").Name(RouteCart)
	r.HandleFunc("/dashboard/cart", h.ClearCart).Methods("DELETE").Name(RouteCart + ".clear")
	r.HandleFunc("/dashboard/cart/items", h.AddToCart).Methods("POST").Name(RouteCart + ".add")
	r.HandleFunc("/dashboard/cart/items/{id:[0-9]+}", h.UpdateCartQty).Methods("PUT").Name(RouteCart + ".qty")
	r.HandleFunc("/dashboard/cart/items/{id:[0-9]+}", h.RemoveFromCart).Methods("DELETE").Name(RouteCart + ".remove")
	r.HandleFunc("/dashboard/cart/items/{id:[0-9]+}/increment", h.IncrementCart).Methods("POST").Name(RouteCart + ".increment")
	r.HandleFunc("/dashboard/cart/items/{id:[0-9]+}/decrement", h.DecrementCart).Methods("POST").Name(RouteCart + ".decrement")

	r.Handle("/metrics", metrics.Handler()).Methods("GET").Name("metrics")
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeAppErr answers err with the status matching its kind.
func writeAppErr(w http.ResponseWriter, err error) {
	var e *apperror.Error
	if !errors.As(err, &e) {
		e = apperror.Normalize(err, "request failed")
	}
	writeJSON(w, statusFor(e), map[string]string{"error": e.Message, "kind": string(e.Kind)})
}

func statusFor(e *apperror.Error) int {
	switch e.Kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindUnauthorized:
		if e.Status == http.StatusForbidden {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case apperror.KindTimeout:
		return http.StatusGatewayTimeout
	case apperror.KindDomain:
		if e.Status >= 400 && e.Status < 500 {
			return e.Status
		}
		if e.Status >= 500 {
			return http.StatusBadGateway
		}
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

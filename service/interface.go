package service

import (
	"context"
	"net/url"

	"storefront-admin/model"
)

// API is the part of apiclient.Client the stores depend on.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// SessionService is the session store as seen by the routing surface.
type SessionService interface {
	IsAuthenticated() bool
	State() SessionState
	Login(ctx context.Context, creds model.Credentials) (model.User, error)
	FetchProfile(ctx context.Context) error
	Logout(ctx context.Context) error
}

type CategoryService interface {
	State() EntityState[model.Category]
	Sorted() []model.Category
	Fetch(ctx context.Context, q model.Query)
	FetchByID(ctx context.Context, id int64)
	ValidateName(name string, excludeID int64) error
	Add(ctx context.Context, p CategoryPayload) error
	Update(ctx context.Context, id int64, p CategoryPayload) error
	Delete(ctx context.Context, id int64) error
}

type ProductService interface {
	State() EntityState[model.Product]
	Sorted() []model.Product
	Fetch(ctx context.Context, q model.Query)
	FetchByID(ctx context.Context, id int64)
	Add(ctx context.Context, body ProductBody) error
	Update(ctx context.Context, id int64, body ProductBody) error
	Delete(ctx context.Context, id int64) error
}

type CartService interface {
	Lines() []model.CartLine
	Total() model.Amount
	Count() int
	Add(ctx context.Context, p model.Product) error
	Remove(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
	Increment(ctx context.Context, id int64) error
	Decrement(ctx context.Context, id int64) error
	UpdateQty(ctx context.Context, id int64, qty int) error
}

var (
	_ SessionService  = (*Session)(nil)
	_ CategoryService = (*CategoryStore)(nil)
	_ ProductService  = (*ProductStore)(nil)
	_ CartService     = (*Cart)(nil)
)

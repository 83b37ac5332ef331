package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"storefront-admin/apiclient"
	"storefront-admin/model"
)

const productResource = "/api/v1/product"

// ProductBody produces the multipart body sent on create and update.
type ProductBody interface {
	Multipart() (*apiclient.Multipart, error)
}

// Upload is a file attached to a product form.
type Upload struct {
	Filename string
	Content  io.Reader
}

// ProductPayload holds the editable product fields. Nil fields are not sent.
type ProductPayload struct {
	Name       *string
	Price      *model.Amount
	CategoryID *int64
	Picture    *Upload
}

// Multipart encodes the payload; numbers are sent as their decimal string.
func (p ProductPayload) Multipart() (*apiclient.Multipart, error) {
	var f apiclient.Form
	if p.Name != nil {
		f.Set("name", strings.TrimSpace(*p.Name))
	}
	if p.Price != nil {
		f.Set("price", p.Price.String())
	}
	if p.CategoryID != nil {
		f.Set("category_id", strconv.FormatInt(*p.CategoryID, 10))
	}
	if p.Picture != nil && p.Picture.Content != nil {
		f.File("picture", p.Picture.Filename, p.Picture.Content)
	}
	return f.Encode()
}

// EncodedProduct is a multipart body built elsewhere, sent unchanged.
type EncodedProduct struct {
	Body *apiclient.Multipart
}

func (e EncodedProduct) Multipart() (*apiclient.Multipart, error) {
	if e.Body == nil {
		return nil, fmt.Errorf("empty multipart body")
	}
	return e.Body, nil
}

// ProductStore caches products and mirrors CRUD calls to the backend.
type ProductStore struct {
	*entityStore[model.Product]
}

func NewProductStore(api API, notify Notifier, log logrus.FieldLogger) *ProductStore {
	return &ProductStore{newEntityStore[model.Product](api, notify, log, productResource, "products", messages{
		fetch:    "failed to load products",
		fetchOne: "failed to load product detail",
		add:      "failed to add product",
		update:   "failed to update product",
		delete:   "failed to delete product",
		added:    "product added",
		updated:  "product updated",
		deleted:  "product deleted",
	})}
}

func (s *ProductStore) Add(ctx context.Context, body ProductBody) error {
	return s.mutate(ctx, "add", s.msg.add, nil, func() error {
		mp, err := body.Multipart()
		if err != nil {
			return err
		}
		return s.api.Post(ctx, productResource, mp, nil)
	})
}

func (s *ProductStore) Update(ctx context.Context, id int64, body ProductBody) error {
	return s.mutate(ctx, "update", s.msg.update, nil, func() error {
		mp, err := body.Multipart()
		if err != nil {
			return err
		}
		return s.api.Post(ctx, fmt.Sprintf("%s/update/%d", productResource, id), mp, nil)
	})
}

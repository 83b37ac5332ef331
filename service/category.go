package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"storefront-admin/apperror"
	"storefront-admin/model"
)

const categoryResource = "/api/v1/category"

type CategoryPayload struct {
	Name string `json:"name"`
}

// CategoryStore caches categories and mirrors CRUD calls to the backend.
type CategoryStore struct {
	*entityStore[model.Category]
}

func NewCategoryStore(api API, notify Notifier, log logrus.FieldLogger) *CategoryStore {
	return &CategoryStore{newEntityStore[model.Category](api, notify, log, categoryResource, "categories", messages{
		fetch:    "failed to load categories",
		fetchOne: "failed to load category",
		add:      "failed to add category",
		update:   "failed to update category",
		delete:   "failed to delete category",
		added:    "category added",
		updated:  "category updated",
		deleted:  "category deleted",
	})}
}

// ValidateName rejects an empty name or one that matches, ignoring case and
// surrounding whitespace, a cached category other than excludeID. An
// excludeID of 0 excludes nothing. The check only covers the cached list;
// the server remains the authority on uniqueness.
func (s *CategoryStore) ValidateName(name string, excludeID int64) error {
	norm := normalizeName(name)
	if norm == "" {
		return apperror.ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.state.List {
		if excludeID != 0 && c.ID == excludeID {
			continue
		}
		if normalizeName(c.Name) == norm {
			return apperror.ErrDuplicateName
		}
	}
	return nil
}

func (s *CategoryStore) Add(ctx context.Context, p CategoryPayload) error {
	return s.mutate(ctx, "add", s.msg.add,
		func() error { return s.ValidateName(p.Name, 0) },
		func() error {
			return s.api.Post(ctx, categoryResource, CategoryPayload{Name: strings.TrimSpace(p.Name)}, nil)
		},
	)
}

func (s *CategoryStore) Update(ctx context.Context, id int64, p CategoryPayload) error {
	return s.mutate(ctx, "update", s.msg.update,
		func() error { return s.ValidateName(p.Name, id) },
		func() error {
			return s.api.Put(ctx, s.itemPath(id), CategoryPayload{Name: strings.TrimSpace(p.Name)}, nil)
		},
	)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

package model

import (
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Record is implemented by every server-side entity cached on the client.
type Record interface {
	RecordID() int64
	Created() time.Time
}

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Category) RecordID() int64    { return c.ID }
func (c Category) Created() time.Time { return c.CreatedAt }

type Product struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Price      Amount    `json:"price"`
	CategoryID int64     `json:"category_id"`
	Picture    string    `json:"picture,omitempty"`
	Category   *Category `json:"category,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p Product) RecordID() int64    { return p.ID }
func (p Product) Created() time.Time { return p.CreatedAt }

// Query carries pagination, sort and filter parameters for list requests.
// Zero fields are not sent.
type Query struct {
	Page    int               `json:"page,omitempty"`
	Limit   int               `json:"limit,omitempty"`
	Sort    string            `json:"sort,omitempty"`
	Order   string            `json:"order,omitempty"`
	Search  string            `json:"search,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
}

// Clone returns a deep copy of q.
func (q Query) Clone() Query {
	out := q
	if q.Filters != nil {
		out.Filters = make(map[string]string, len(q.Filters))
		for k, v := range q.Filters {
			out.Filters[k] = v
		}
	}
	return out
}

// Values encodes q as URL query parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	for k, val := range q.Filters {
		v.Set(k, val)
	}
	return v
}

// SortNewestFirst returns a copy of records ordered by creation time,
// newest first. Records without a timestamp sort last.
func SortNewestFirst[T Record](records []T) []T {
	out := make([]T, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created().After(out[j].Created())
	})
	return out
}

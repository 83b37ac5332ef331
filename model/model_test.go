package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountDecodesLeniently(t *testing.T) {
	tests := map[string]string{
		`10`:      "10",
		`12.50`:   "12.5",
		`"7.25"`:  "7.25",
		`" 3 "`:   "3",
		`"abc"`:   "0",
		`null`:    "0",
		`true`:    "0",
		`{"a":1}`: "0",
	}
	for in, want := range tests {
		var a Amount
		require.NoError(t, json.Unmarshal([]byte(in), &a), in)
		assert.Equal(t, want, a.String(), in)
	}
}

func TestAmountEncodesAsNumber(t *testing.T) {
	data, err := json.Marshal(struct {
		Price Amount `json:"price"`
	}{ParseAmount("19.90")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":19.9}`, string(data))
}

func TestAmountArithmetic(t *testing.T) {
	// 0.1 * 3 stays exact
	total := NewAmount(0.1).Mul(3).Add(NewAmount(0.2))
	assert.True(t, total.Equal(ParseAmount("0.5")), total.String())
}

func TestListEnvelope(t *testing.T) {
	var env ListEnvelope[Category]
	require.NoError(t, json.Unmarshal([]byte(`{"data":[{"id":1,"name":"A"}],"total":9}`), &env))
	assert.Len(t, env.Data, 1)
	assert.Equal(t, 9, env.Count())

	env = ListEnvelope[Category]{}
	require.NoError(t, json.Unmarshal([]byte(`{"data":[]}`), &env))
	assert.Equal(t, 0, env.Count())

	for _, body := range []string{`{}`, `{"data":null}`, `{"items":[]}`} {
		err := json.Unmarshal([]byte(body), &env)
		assert.True(t, errors.Is(err, ErrMissingData), body)
	}

	assert.Error(t, json.Unmarshal([]byte(`{"data":{"id":1}}`), &env), "object where a list is expected")
}

func TestItemEnvelope(t *testing.T) {
	var env ItemEnvelope[Product]
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"id":3,"price":"4.5"},"message":"ok"}`), &env))
	assert.Equal(t, int64(3), env.Data.ID)
	assert.True(t, env.Data.Price.Equal(NewAmount(4.5)))
	assert.Equal(t, "ok", env.Message)

	err := json.Unmarshal([]byte(`{"message":"ok"}`), &env)
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestQueryValues(t *testing.T) {
	q := Query{Page: 2, Limit: 10, Search: "tea", Filters: map[string]string{"category_id": "4"}}
	v := q.Values()
	assert.Equal(t, "2", v.Get("page"))
	assert.Equal(t, "10", v.Get("limit"))
	assert.Equal(t, "tea", v.Get("search"))
	assert.Equal(t, "4", v.Get("category_id"))
	assert.Empty(t, v.Get("sort"))

	assert.Empty(t, Query{}.Values())
}

func TestQueryCloneIsDeep(t *testing.T) {
	q := Query{Filters: map[string]string{"a": "1"}}
	c := q.Clone()
	c.Filters["a"] = "2"
	assert.Equal(t, "1", q.Filters["a"])
}

func TestSortNewestFirst(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []Category{
		{ID: 1, CreatedAt: t0},
		{ID: 2},
		{ID: 3, CreatedAt: t0.Add(time.Hour)},
	}
	out := SortNewestFirst(in)

	ids := []int64{out[0].ID, out[1].ID, out[2].ID}
	assert.Equal(t, []int64{3, 1, 2}, ids)
	assert.Equal(t, int64(1), in[0].ID, "input must not be reordered")
}

func TestCredentialsLoginFallsBackToUsername(t *testing.T) {
	email, pw := Credentials{Username: "admin", Password: "x"}.Login()
	assert.Equal(t, "admin", email)
	assert.Equal(t, "x", pw)

	email, _ = Credentials{Username: "admin", Email: "a@b.c"}.Login()
	assert.Equal(t, "a@b.c", email)
}

func TestCartLineFlattensProduct(t *testing.T) {
	data, err := json.Marshal(CartLine{Product: Product{ID: 1, Name: "Tea", Price: NewAmount(2)}, Qty: 3})
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, float64(1), m["id"])
	assert.Equal(t, float64(3), m["qty"])
	assert.True(t, CartLine{Product: Product{Price: NewAmount(2)}, Qty: 3}.Subtotal().Equal(NewAmount(6)))
}

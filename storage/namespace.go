package storage

import "context"

type namespaced struct {
	Storage
	prefix string
}

// Namespaced prefixes every key with prefix and a colon, so several
// installations can share one backend. An empty prefix returns s unchanged.
func Namespaced(s Storage, prefix string) Storage {
	if prefix == "" {
		return s
	}
	return &namespaced{Storage: s, prefix: prefix + ":"}
}

func (n *namespaced) GetItem(ctx context.Context, key string) (string, bool, error) {
	return n.Storage.GetItem(ctx, n.prefix+key)
}

func (n *namespaced) SetItem(ctx context.Context, key, value string) error {
	return n.Storage.SetItem(ctx, n.prefix+key, value)
}

func (n *namespaced) RemoveItem(ctx context.Context, key string) error {
	return n.Storage.RemoveItem(ctx, n.prefix+key)
}

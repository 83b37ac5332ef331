package service

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"storefront-admin/logger"
)

// ---- fakeAPI implementing API for tests ----
type fakeAPI struct {
	GetFn    func(path string, query url.Values, out any) error
	PostFn   func(path string, body, out any) error
	PutFn    func(path string, body, out any) error
	DeleteFn func(path string) error

	mu    sync.Mutex
	calls []string
}

func (f *fakeAPI) record(method, path string) {
	f.mu.Lock()
	f.calls = append(f.calls, method+" "+path)
	f.mu.Unlock()
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) Get(_ context.Context, path string, query url.Values, out any) error {
	f.record("GET", path)
	return f.GetFn(path, query, out)
}

func (f *fakeAPI) Post(_ context.Context, path string, body, out any) error {
	f.record("POST", path)
	return f.PostFn(path, body, out)
}

func (f *fakeAPI) Put(_ context.Context, path string, body, out any) error {
	f.record("PUT", path)
	return f.PutFn(path, body, out)
}

func (f *fakeAPI) Delete(_ context.Context, path string, _ any) error {
	f.record("DELETE", path)
	return f.DeleteFn(path)
}

// respond decodes a literal JSON response into out, as the real client does.
func respond(out any, body string) error {
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte(body), out)
}

func newTestFeed() *Feed {
	return NewFeed(logger.Discard(), 10)
}

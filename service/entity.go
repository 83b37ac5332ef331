package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"storefront-admin/apperror"
	"storefront-admin/model"
)

// EntityState is a snapshot of an entity store.
type EntityState[T model.Record] struct {
	List      []T         `json:"list"`
	Selected  *T          `json:"selected"`
	Loading   bool        `json:"loading"`
	Error     string      `json:"error,omitempty"`
	Total     int         `json:"total"`
	LastQuery model.Query `json:"last_query"`
}

// messages are the fallback texts used when a failure carries none, and
// the success texts of the write operations.
type messages struct {
	fetch, fetchOne, add, update, delete string
	added, updated, deleted              string
}

// entityStore caches one backend resource. Concurrent calls are not
// serialized: the last response to settle wins for list, selected and
// lastQuery, and loading tracks whichever call settled last. The mutex
// only keeps individual state updates consistent.
type entityStore[T model.Record] struct {
	api      API
	notify   Notifier
	log      logrus.FieldLogger
	resource string
	source   string
	msg      messages

	mu    sync.Mutex
	state EntityState[T]
}

func newEntityStore[T model.Record](api API, notify Notifier, log logrus.FieldLogger, resource, source string, msg messages) *entityStore[T] {
	return &entityStore[T]{
		api:      api,
		notify:   notify,
		log:      log.WithField("component", source),
		resource: resource,
		source:   source,
		msg:      msg,
		state:    EntityState[T]{List: []T{}},
	}
}

// State returns a copy of the current state.
func (s *entityStore[T]) State() EntityState[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.state
	out.List = append([]T(nil), s.state.List...)
	if s.state.Selected != nil {
		sel := *s.state.Selected
		out.Selected = &sel
	}
	out.LastQuery = s.state.LastQuery.Clone()
	return out
}

// Sorted returns the cached list ordered newest first.
func (s *entityStore[T]) Sorted() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.SortNewestFirst(s.state.List)
}

// Fetch replaces the cached list with the page selected by q. Failures
// leave the list untouched and are recorded in the state and notified.
func (s *entityStore[T]) Fetch(ctx context.Context, q model.Query) {
	s.begin()

	var env model.ListEnvelope[T]
	err := s.api.Get(ctx, s.resource, q.Values(), &env)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	if err != nil {
		s.failLocked("fetch", err, s.msg.fetch)
		return
	}
	s.state.List = env.Data
	s.state.Total = env.Count()
	s.state.LastQuery = q.Clone()
}

// FetchByID loads one record into Selected. On failure Selected keeps its
// previous value.
func (s *entityStore[T]) FetchByID(ctx context.Context, id int64) {
	s.begin()

	var env model.ItemEnvelope[T]
	err := s.api.Get(ctx, s.itemPath(id), nil, &env)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	if err != nil {
		s.failLocked("fetch_by_id", err, s.msg.fetchOne)
		return
	}
	rec := env.Data
	s.state.Selected = &rec
}

// mutate runs a write: optional pre-flight validation, the request, then a
// full re-fetch of the last query. Failures are recorded, notified and
// returned.
func (s *entityStore[T]) mutate(ctx context.Context, op, fallback string, validate func() error, send func() error) error {
	s.begin()

	if validate != nil {
		if err := validate(); err != nil {
			return s.fail(op, err, fallback)
		}
	}
	if err := send(); err != nil {
		return s.fail(op, err, fallback)
	}
	s.succeed(op)

	s.Fetch(ctx, s.lastQuery())
	s.end()
	return nil
}

// Delete removes a record on the server, drops it from the cached list at
// once and re-fetches when a total is tracked.
func (s *entityStore[T]) Delete(ctx context.Context, id int64) error {
	s.begin()

	if err := s.api.Delete(ctx, s.itemPath(id), nil); err != nil {
		return s.fail("delete", err, s.msg.delete)
	}

	s.mu.Lock()
	kept := s.state.List[:0:0]
	for _, rec := range s.state.List {
		if rec.RecordID() != id {
			kept = append(kept, rec)
		}
	}
	s.state.List = kept
	refetch := s.state.Total != 0
	q := s.state.LastQuery.Clone()
	s.mu.Unlock()
	s.succeed("delete")

	if refetch {
		s.Fetch(ctx, q)
	}
	s.end()
	return nil
}

func (s *entityStore[T]) itemPath(id int64) string {
	return fmt.Sprintf("%s/%d", s.resource, id)
}

func (s *entityStore[T]) lastQuery() model.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastQuery.Clone()
}

func (s *entityStore[T]) begin() {
	s.mu.Lock()
	s.state.Loading = true
	s.state.Error = ""
	s.mu.Unlock()
}

func (s *entityStore[T]) end() {
	s.mu.Lock()
	s.state.Loading = false
	s.mu.Unlock()
}

func (s *entityStore[T]) succeed(op string) {
	msg := map[string]string{"add": s.msg.added, "update": s.msg.updated, "delete": s.msg.deleted}[op]
	if msg == "" {
		return
	}
	s.log.WithField("op", op).Info(msg)
	s.notify.Notify(Notification{Level: LevelSuccess, Source: s.source, Message: msg})
}

func (s *entityStore[T]) fail(op string, err error, fallback string) *apperror.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Loading = false
	return s.failLocked(op, err, fallback)
}

func (s *entityStore[T]) failLocked(op string, err error, fallback string) *apperror.Error {
	appErr := apperror.Normalize(err, fallback)
	s.state.Error = appErr.Message
	s.log.WithError(err).WithField("op", op).Warn("request failed")
	s.notify.Notify(Notification{Level: LevelError, Source: s.source, Message: appErr.Message})
	return appErr
}

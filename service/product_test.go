package service

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront-admin/apiclient"
	"storefront-admin/apperror"
	"storefront-admin/logger"
	"storefront-admin/model"
)

// parseForm decodes a multipart body into fields and file contents.
func parseForm(t *testing.T, mp *apiclient.Multipart) (map[string]string, map[string]string) {
	t.Helper()
	_, params, err := mime.ParseMediaType(mp.ContentType)
	if err != nil {
		t.Fatalf("content type: %v", err)
	}
	r := multipart.NewReader(bytes.NewReader(mp.Body), params["boundary"])
	fields, files := map[string]string{}, map[string]string{}
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		data, _ := io.ReadAll(part)
		if part.FileName() != "" {
			files[part.FormName()] = part.FileName() + ":" + string(data)
		} else {
			fields[part.FormName()] = string(data)
		}
	}
	return fields, files
}

func TestProductPayloadMultipart(t *testing.T) {
	name := "  Cola Zero "
	price := model.ParseAmount("12500.50")
	cat := int64(3)

	mp, err := ProductPayload{
		Name:       &name,
		Price:      &price,
		CategoryID: &cat,
		Picture:    &Upload{Filename: "cola.png", Content: strings.NewReader("PNG")},
	}.Multipart()
	if err != nil {
		t.Fatal(err)
	}

	fields, files := parseForm(t, mp)
	if fields["name"] != "Cola Zero" || fields["price"] != "12500.5" || fields["category_id"] != "3" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if files["picture"] != "cola.png:PNG" {
		t.Fatalf("unexpected files %v", files)
	}
}

func TestProductPayloadOmitsNilFields(t *testing.T) {
	price := model.NewAmount(10)
	mp, err := ProductPayload{Price: &price}.Multipart()
	if err != nil {
		t.Fatal(err)
	}
	fields, files := parseForm(t, mp)
	if len(fields) != 1 || fields["price"] != "10" || len(files) != 0 {
		t.Fatalf("unexpected form %v %v", fields, files)
	}
}

func TestAddProductSendsMultipartAndRefetches(t *testing.T) {
	var sent *apiclient.Multipart
	gets := 0
	api := &fakeAPI{
		GetFn: func(_ string, _ url.Values, out any) error {
			gets++
			return respond(out, `{"data":[{"id":1,"name":"Cola","price":"5000"}],"total":1}`)
		},
		PostFn: func(path string, body, _ any) error {
			if path != productResource {
				t.Fatalf("unexpected path %s", path)
			}
			sent = body.(*apiclient.Multipart)
			return nil
		},
	}
	s := NewProductStore(api, newTestFeed(), logger.Discard())

	name := "Cola"
	if err := s.Add(context.Background(), ProductPayload{Name: &name}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent == nil || !strings.HasPrefix(sent.ContentType, "multipart/form-data") {
		t.Fatalf("expected multipart body, got %+v", sent)
	}
	if gets != 1 {
		t.Fatalf("expected one re-fetch, got %d", gets)
	}
	if st := s.State(); len(st.List) != 1 || !st.List[0].Price.Equal(model.NewAmount(5000)) {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestUpdateProductPassesEncodedBodyThrough(t *testing.T) {
	pre := &apiclient.Multipart{ContentType: "multipart/form-data; boundary=xyz", Body: []byte("--xyz--\r\n")}
	api := &fakeAPI{
		GetFn: func(_ string, _ url.Values, out any) error { return respond(out, `{"data":[]}`) },
		PostFn: func(path string, body, _ any) error {
			if path != productResource+"/update/9" {
				t.Fatalf("unexpected path %s", path)
			}
			if body.(*apiclient.Multipart) != pre {
				t.Fatalf("pre-built body must be sent unchanged")
			}
			return nil
		},
	}
	s := NewProductStore(api, newTestFeed(), logger.Discard())

	if err := s.Update(context.Background(), 9, EncodedProduct{Body: pre}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateProductFailure(t *testing.T) {
	api := &fakeAPI{
		PostFn: func(string, any, any) error { return apperror.FromStatus(400, "price must be numeric") },
	}
	feed := newTestFeed()
	s := NewProductStore(api, feed, logger.Discard())

	err := s.Update(context.Background(), 1, EncodedProduct{Body: &apiclient.Multipart{}})
	if err == nil || s.State().Error != "price must be numeric" {
		t.Fatalf("expected recorded failure, err=%v state=%+v", err, s.State())
	}
	if len(feed.Recent()) != 1 {
		t.Fatalf("expected a notification")
	}
}

func TestDeleteProductRemovesBeforeRefetch(t *testing.T) {
	refetchStarted := make(chan struct{})
	releaseRefetch := make(chan struct{})
	deleted := false

	api := &fakeAPI{
		GetFn: func(_ string, _ url.Values, out any) error {
			if deleted {
				close(refetchStarted)
				<-releaseRefetch
				return respond(out, `{"data":[{"id":4}],"total":1}`)
			}
			return respond(out, `{"data":[{"id":4},{"id":5}],"total":2}`)
		},
		DeleteFn: func(path string) error {
			if path != productResource+"/5" {
				t.Fatalf("unexpected path %s", path)
			}
			deleted = true
			return nil
		},
	}
	s := NewProductStore(api, newTestFeed(), logger.Discard())
	s.Fetch(context.Background(), model.Query{})

	done := make(chan error, 1)
	go func() { done <- s.Delete(context.Background(), 5) }()

	<-refetchStarted
	for _, p := range s.State().List {
		if p.ID == 5 {
			t.Fatalf("product 5 must be gone before the re-fetch completes")
		}
	}
	close(releaseRefetch)

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st := s.State(); len(st.List) != 1 || st.Total != 1 || st.Loading {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestDeleteWithoutTotalSkipsRefetch(t *testing.T) {
	api := &fakeAPI{
		GetFn:    func(_ string, _ url.Values, out any) error { return respond(out, `{"data":[],"total":0}`) },
		DeleteFn: func(string) error { return nil },
	}
	s := NewProductStore(api, newTestFeed(), logger.Discard())
	s.Fetch(context.Background(), model.Query{})

	if err := s.Delete(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if calls := api.Calls(); len(calls) != 2 {
		t.Fatalf("expected fetch + delete only, got %v", calls)
	}
}

// Two overlapping fetches: whichever resolves last wins, regardless of
// the order they were issued in.
func TestConcurrentFetchLastResolvedWins(t *testing.T) {
	release := map[string]chan struct{}{
		"1": make(chan struct{}),
		"2": make(chan struct{}),
	}
	started := make(chan string, 2)

	api := &fakeAPI{GetFn: func(_ string, q url.Values, out any) error {
		page := q.Get("page")
		started <- page
		<-release[page]
		return respond(out, `{"data":[{"id":`+page+`}]}`)
	}}
	s := NewProductStore(api, newTestFeed(), logger.Discard())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.Fetch(context.Background(), model.Query{Page: 1}) }()
	<-started
	go func() { defer wg.Done(); s.Fetch(context.Background(), model.Query{Page: 2}) }()
	<-started

	// the later request resolves first
	close(release["2"])
	waitFor(t, func() bool { return s.State().LastQuery.Page == 2 })
	close(release["1"])
	wg.Wait()

	st := s.State()
	if st.LastQuery.Page != 1 || len(st.List) != 1 || st.List[0].ID != 1 {
		t.Fatalf("expected the last resolved response (page 1) to win, got %+v", st)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

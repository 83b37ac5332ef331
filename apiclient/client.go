// Package apiclient is the HTTP adapter every store talks to the backend
// through. It injects the bearer token, classifies failures into
// apperror values and decodes typed response envelopes.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storefront-admin/apperror"
	"storefront-admin/metrics"
	"storefront-admin/model"
)

const (
	// DefaultTimeout is the fixed deadline applied to every request.
	DefaultTimeout = 15 * time.Second

	RequestIDHeader = "X-Request-ID"

	maxErrorBody    = 64 << 10
	maxResponseBody = 8 << 20
)

// TokenSource reports the current session token, or "" when anonymous.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// Client sends requests to the REST backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	log        logrus.FieldLogger
}

// Config configures the client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     logrus.FieldLogger
}

// New creates a client. Without a Timeout the 15 second default applies.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	tokens := cfg.Tokens
	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}

	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		tokens:     tokens,
		log:        log.WithField("component", "apiclient"),
	}
}

// SetTokenSource replaces the token source. It is used when the session
// is constructed after the client.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// Request describes one call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is sent as JSON, or as-is when it is a *Multipart.
	Body any
}

// Do sends req and decodes a successful response into out (nil discards
// the body). Every failure is returned as an *apperror.Error.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}

	log := c.log.WithFields(logrus.Fields{
		"method":     req.Method,
		"path":       req.Path,
		"request_id": httpReq.Header.Get(RequestIDHeader),
	})

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordAPIRequest(req.Method, req.Path, 0, time.Since(start))
		appErr := apperror.FromTransport(err)
		log.WithError(err).Debug("request failed")
		return appErr
	}
	defer resp.Body.Close()
	metrics.RecordAPIRequest(req.Method, req.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		appErr := decodeError(resp)
		if appErr.Kind == apperror.KindUnauthorized {
			metrics.RecordAuthFailure()
			log.WithField("status", resp.StatusCode).Warn("unauthorized or forbidden, token may be invalid")
		}
		return appErr
	}

	return decodeBody(resp, out)
}

// Get performs a GET request with query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post performs a POST request with a JSON or multipart body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put performs a PUT request with a JSON or multipart body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch b := req.Body.(type) {
	case nil:
	case *Multipart:
		body = bytes.NewReader(b.Body)
		contentType = b.ContentType
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, apperror.Wrap(apperror.KindTransport, "failed to marshal request body", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindTransport, "failed to create request", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, uuid.NewString())
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token := c.tokens.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, nil
}

func decodeError(resp *http.Response) *apperror.Error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var env model.MessageEnvelope
	msg := ""
	if err := json.Unmarshal(data, &env); err == nil {
		msg = env.Message
	}
	return apperror.FromStatus(resp.StatusCode, msg)
}

func decodeBody(resp *http.Response, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return apperror.FromTransport(fmt.Errorf("read response body: %w", err))
	}
	if len(data) > maxResponseBody {
		return apperror.New(apperror.KindDecode, "response body too large")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperror.Wrap(apperror.KindDecode, "unexpected response shape", err)
	}
	return nil
}

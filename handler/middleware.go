package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"storefront-admin/apiclient"
	"storefront-admin/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// routeName is the matched route's name, or not-found.
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
		return route.GetName()
	}
	return RouteNotFound
}

// instrument logs and counts every request by route name.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get(apiclient.RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(apiclient.RequestIDHeader, reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		name := routeName(r)
		metrics.RecordHTTPRequest(name, rec.status)
		h.log.WithFields(logrus.Fields{
			"request_id": reqID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"route":      name,
			"status":     rec.status,
			"duration":   time.Since(start),
		}).Debug("handled request")
	})
}

// guard applies Guard to the matched route before its handler runs.
func (h *Handler) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := Guard(MetaFor(routeName(r)), h.session.IsAuthenticated(), r.URL.RequestURI())
		if d.Allowed() {
			next.ServeHTTP(w, r)
			return
		}
		h.redirect(w, r, d)
	})
}

// redirect sends a 303 to the route named by d.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, d Decision) {
	route := h.router.Get(d.Target)
	if route == nil {
		writeErr(w, http.StatusInternalServerError, "unknown route "+d.Target)
		return
	}
	u, err := route.URL()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(d.Query) > 0 {
		u.RawQuery = d.Query.Encode()
	}
	h.log.WithFields(logrus.Fields{"from": r.URL.Path, "to": d.Target}).Debug("redirecting")
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

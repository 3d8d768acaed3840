// Package identity extracts the client's task identifier from requests.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
)

const (
	TaskHeaderName = "X-Task-ID"
	TaskQueryParam = "task_id"
)

type contextKey int

const taskIDKey contextKey = iota

var taskIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// TaskIDFromContext returns the task identifier the request carried, if any.
func TaskIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(taskIDKey).(string)
	return v, ok
}

// TaskIDPtr is TaskIDFromContext in the form the coach expects: nil when the
// request carried no task identifier.
func TaskIDPtr(ctx context.Context) *string {
	if v, ok := TaskIDFromContext(ctx); ok {
		return &v
	}
	return nil
}

// WithTaskID returns a copy of ctx carrying id.
func WithTaskID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, taskIDKey, id)
}

// SanitizeTaskID trims id and reports whether it is usable.
func SanitizeTaskID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if id == "" || !taskIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

func taskIDFromRequest(r *http.Request) (string, bool) {
	id := r.Header.Get(TaskHeaderName)
	if id == "" {
		id = r.URL.Query().Get(TaskQueryParam)
	}
	return SanitizeTaskID(id)
}

// Middleware injects the request's task identifier into its context. Requests
// without one, or with a malformed one, pass through without it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := taskIDFromRequest(r); ok {
			r = r.WithContext(WithTaskID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header string
		want   *string
	}{
		{name: "header", target: "/api/frame", header: "task-1", want: ptr("task-1")},
		{name: "query", target: "/api/frame?task_id=task-2", want: ptr("task-2")},
		{name: "header wins", target: "/api/frame?task_id=q", header: "h", want: ptr("h")},
		{name: "absent", target: "/api/frame"},
		{name: "malformed", target: "/api/frame", header: "bad id with spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *string
			h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = TaskIDPtr(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, tt.target, nil)
			if tt.header != "" {
				req.Header.Set(TaskHeaderName, tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "10.0.0.7", IPFromRequest(req))
}

func ptr(s string) *string { return &s }

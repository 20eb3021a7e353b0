package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/thinking-workspace/internal/model"
	"github.com/capitalize-ai/thinking-workspace/pkg/logger"
)

func TestLoggingAssignsCorrelationID(t *testing.T) {
	var seen string
	h := Logging(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
		_, ok := w.(http.Flusher)
		assert.True(t, ok)
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationHeader))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(CorrelationHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
}

func TestWorkspaceRateLimit(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/ws/{workspaceID}", func(r chi.Router) {
		r.Use(WorkspaceRateLimit(2, time.Minute))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {})
	})

	call := func(ws string) int {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/"+ws+"/", nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("a"))
	assert.Equal(t, http.StatusOK, call("a"))
	assert.Equal(t, http.StatusTooManyRequests, call("a"))
	assert.Equal(t, http.StatusOK, call("b"))
}

func TestRateLimitBody(t *testing.T) {
	h := RateLimit(1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded","retry_after":60}`, rec.Body.String())
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		ok   bool
	}{
		{"content ok", ValidateMessageContent("Hello"), true},
		{"content blank", ValidateMessageContent(" \n"), false},
		{"content too long", ValidateMessageContent(strings.Repeat("a", maxContentBytes+1)), false},
		{"content bad utf8", ValidateMessageContent("\xff"), false},
		{"id uuid", ValidateID("0190a1b2-c3d4-7e5f-8a9b-0c1d2e3f4a5b"), true},
		{"id garbage", ValidateID("nope"), false},
		{"branch main", ValidateBranchID(model.MainBranchID), true},
		{"branch garbage", ValidateBranchID("../x"), false},
		{"title long", ValidateTitle(strings.Repeat("t", maxTitleLength+1)), false},
		{"name empty", ValidateBranchName(""), true},
		{"tags many", ValidateTags(make([]string, maxTags+1)), false},
		{"attachment incomplete", ValidateAttachments([]model.Attachment{{ID: "a"}}), false},
		{"attachment ok", ValidateAttachments([]model.Attachment{{ID: "a", Name: "n", Type: "file"}}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.ok {
				assert.NoError(t, tt.err)
			} else {
				assert.Error(t, tt.err)
			}
		})
	}
}

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marshallshelly/pebble-apps/internal/apperr"
	"github.com/marshallshelly/pebble-apps/internal/logging"
	"github.com/marshallshelly/pebble-apps/pkg/dates"
	"github.com/marshallshelly/pebble-apps/pkg/listquery"
	"github.com/marshallshelly/pebble-apps/pkg/optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

type createClassInput struct {
	Name     string  `json:"name" binding:"required"`
	Capacity int     `json:"capacity" binding:"min=1,max=500"`
	Color    *string `json:"color" binding:"omitempty,rgbhex"`
}

type updateClassInput struct {
	ID        int64                      `json:"id" binding:"required"`
	Name      optional.Field[string]     `json:"name" binding:"omitempty,min=1"`
	Notes     optional.Field[*string]    `json:"notes" binding:"omitempty,max=5"`
	StartTime optional.Field[string]     `json:"start_time" binding:"omitempty,clock"`
	Date      optional.Field[dates.Date] `json:"date"`
}

type listInput struct {
	Search *string `json:"search"`
	listquery.Page
}

type result struct {
	OK      bool   `json:"ok"`
	Summary string `json:"summary"`
}

type failingPinger struct{ err error }

func (p failingPinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	s := NewServer(opts)

	Register(s, "gym.createClass", func(_ context.Context, in *createClassInput) (result, error) {
		return result{OK: true, Summary: in.Name}, nil
	})
	Register(s, "gym.updateClass", func(_ context.Context, in *updateClassInput) (result, error) {
		summary := "unchanged"
		if name, ok := in.Name.Value(); ok {
			summary = name
		}
		if notes, ok := in.Notes.Value(); ok && notes == nil {
			summary += ",notes cleared"
		}
		return result{OK: true, Summary: summary}, nil
	})
	Register(s, "gym.getClasses", func(_ context.Context, in *listInput) ([]string, error) {
		if in.Search != nil {
			return []string{*in.Search}, nil
		}
		return []string{}, nil
	})
	Register(s, "gym.fail", func(_ context.Context, in *listInput) (result, error) {
		switch {
		case in.Search == nil:
			return result{}, errors.New("connection reset by peer")
		case *in.Search == "missing":
			return result{}, apperr.NotFound("Member", 7)
		case *in.Search == "full":
			return result{}, apperr.Conflict("Class is full")
		case *in.Search == "slow down":
			return result{}, apperr.RateLimited(2500*time.Millisecond, "too many calls")
		}
		panic("boom")
	})
	return s
}

func call(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func TestDispatch_Success(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := call(t, s, http.MethodPost, "/rpc/gym.createClass", `{"name":"Spin","capacity":20,"color":"#A1B2C3"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true,"summary":"Spin"}`, rec.Body.String())
}

func TestDispatch_AbsentInput(t *testing.T) {
	s := newTestServer(t, Options{})

	for _, body := range []string{"", "null", "  \n"} {
		rec := call(t, s, http.MethodPost, "/rpc/gym.getClasses", body)
		assert.Equal(t, http.StatusOK, rec.Code, "body %q", body)
		assert.JSONEq(t, `[]`, rec.Body.String())
	}

	rec := call(t, s, http.MethodPost, "/rpc/gym.createClass", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required; capacity must be at least 1", decodeError(t, rec).Message)
}

func TestDispatch_Validation(t *testing.T) {
	s := newTestServer(t, Options{})

	tests := []struct {
		name    string
		path    string
		body    string
		message string
	}{
		{
			name:    "required and range",
			path:    "/rpc/gym.createClass",
			body:    `{"name":"","capacity":501}`,
			message: "name is required; capacity must be at most 500",
		},
		{
			name:    "hex color",
			path:    "/rpc/gym.createClass",
			body:    `{"name":"Yoga","capacity":5,"color":"red"}`,
			message: "color must be a hex color like #1A2B3C",
		},
		{
			name:    "wrong json type",
			path:    "/rpc/gym.createClass",
			body:    `{"name":"Yoga","capacity":"many"}`,
			message: "capacity must be an integer",
		},
		{
			name:    "malformed json",
			path:    "/rpc/gym.createClass",
			body:    `{"name":`,
			message: "request body is not valid JSON",
		},
		{
			name:    "present empty string in patch",
			path:    "/rpc/gym.updateClass",
			body:    `{"id":1,"name":""}`,
			message: "name must be at least 1 character",
		},
		{
			name:    "patch string too long",
			path:    "/rpc/gym.updateClass",
			body:    `{"id":1,"notes":"way too long"}`,
			message: "notes must be at most 5 characters",
		},
		{
			name:    "clock format",
			path:    "/rpc/gym.updateClass",
			body:    `{"id":1,"start_time":"25:00"}`,
			message: "start_time must be a time in HH:MM format",
		},
		{
			name:    "negative page",
			path:    "/rpc/gym.getClasses",
			body:    `{"limit":0}`,
			message: "limit must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, s, http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			detail := decodeError(t, rec)
			assert.Equal(t, "validation", detail.Code)
			assert.Equal(t, tt.message, detail.Message)
		})
	}

	t.Run("null on a required patch field", func(t *testing.T) {
		rec := call(t, s, http.MethodPost, "/rpc/gym.updateClass", `{"id":1,"name":null}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad date", func(t *testing.T) {
		rec := call(t, s, http.MethodPost, "/rpc/gym.updateClass", `{"id":1,"date":"31/01/2025"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDispatch_Patch(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := call(t, s, http.MethodPost, "/rpc/gym.updateClass", `{"id":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true,"summary":"unchanged"}`, rec.Body.String())

	rec = call(t, s, http.MethodPost, "/rpc/gym.updateClass", `{"id":1,"name":"Core","notes":null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true,"summary":"Core,notes cleared"}`, rec.Body.String())
}

func TestDispatch_Errors(t *testing.T) {
	s := newTestServer(t, Options{})

	tests := []struct {
		name    string
		body    string
		status  int
		code    string
		message string
	}{
		{"unexpected error passes through", `{}`, http.StatusInternalServerError, "internal", "connection reset by peer"},
		{"not found", `{"search":"missing"}`, http.StatusNotFound, "not_found", "Member with id 7 not found"},
		{"conflict", `{"search":"full"}`, http.StatusConflict, "conflict", "Class is full"},
		{"panic", `{"search":"explode"}`, http.StatusInternalServerError, "internal", "panic: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(t, s, http.MethodPost, "/rpc/gym.fail", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			detail := decodeError(t, rec)
			assert.Equal(t, tt.code, detail.Code)
			assert.Equal(t, tt.message, detail.Message)
		})
	}

	t.Run("rate limited sets Retry-After", func(t *testing.T) {
		rec := call(t, s, http.MethodPost, "/rpc/gym.fail", `{"search":"slow down"}`)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("Retry-After"))
		assert.Equal(t, "rate_limited", decodeError(t, rec).Code)
	})
}

func TestDispatch_Routing(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := call(t, s, http.MethodPost, "/rpc/gym.nothing", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)

	rec = call(t, s, http.MethodGet, "/rpc/gym.getClasses", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))

	rec = call(t, s, http.MethodGet, "/rpc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"procedures":["gym.createClass","gym.fail","gym.getClasses","gym.updateClass"]}`, rec.Body.String())

	assert.Panics(t, func() {
		Register(s, "gym.getClasses", func(context.Context, *listInput) (int, error) { return 0, nil })
	})
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := call(t, s, http.MethodPost, "/rpc/gym.getClasses", "")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36, "generated uuid")

	req := httptest.NewRequest(http.MethodPost, "/rpc/gym.getClasses", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "trace-123", rec.Header().Get(RequestIDHeader))
}

func TestHealthz(t *testing.T) {
	rec := call(t, newTestServer(t, Options{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s := newTestServer(t, Options{Health: failingPinger{err: errors.New("pool closed")}})
	rec = call(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "pool closed")
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, Options{})

	call(t, s, http.MethodPost, "/rpc/gym.getClasses", "")
	call(t, s, http.MethodPost, "/rpc/gym.fail", `{"search":"full"}`)
	call(t, s, http.MethodPost, "/rpc/gym.unknown", "")

	rec := call(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `pebble_rpc_requests_total{code="ok",procedure="gym.getClasses"} 1`)
	assert.Contains(t, body, `pebble_rpc_requests_total{code="conflict",procedure="gym.fail"} 1`)
	assert.Contains(t, body, `pebble_rpc_request_duration_seconds_count{procedure="gym.getClasses"} 1`)
	assert.NotContains(t, body, "gym.unknown", "unregistered names are not labels")
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, Options{CORSOrigins: []string{"https://apps.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/rpc/gym.getClasses", nil)
	req.Header.Set("Origin", "https://apps.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://apps.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"RequesterID": "requester_id",
		"StartTime":   "start_time",
		"ID":          "id",
		"NTRPRating":  "ntrp_rating",
	}
	for in, want := range tests {
		assert.Equal(t, want, snakeCase(in), in)
	}
}

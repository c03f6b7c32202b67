package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"carrental/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: logger.JSON, Service: "test", Output: io.Discard})
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestContentTypeValidation(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
	}{
		{name: "json post", method: http.MethodPost, contentType: "application/json; charset=utf-8", body: "{}", wantStatus: http.StatusOK},
		{name: "multipart post", method: http.MethodPost, contentType: "multipart/form-data; boundary=x", body: "--x--", wantStatus: http.StatusOK},
		{name: "text post", method: http.MethodPost, contentType: "text/plain", body: "hi", wantStatus: http.StatusUnsupportedMediaType},
		{name: "missing on put", method: http.MethodPut, body: "{}", wantStatus: http.StatusUnsupportedMediaType},
		{name: "empty post allowed", method: http.MethodPost, wantStatus: http.StatusOK},
		{name: "get ignored", method: http.MethodGet, contentType: "text/plain", wantStatus: http.StatusOK},
	}

	handler := ContentTypeValidation(testLogger())(okHandler)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, "/api/v1/cars", body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := MaxRequestSize(8, 32)(readAll)

	tests := []struct {
		name        string
		contentType string
		size        int
		wantStatus  int
	}{
		{name: "json within limit", contentType: "application/json", size: 8, wantStatus: http.StatusOK},
		{name: "json over limit", contentType: "application/json", size: 9, wantStatus: http.StatusRequestEntityTooLarge},
		{name: "multipart uses upload limit", contentType: "multipart/form-data; boundary=x", size: 30, wantStatus: http.StatusOK},
		{name: "multipart over upload limit", contentType: "multipart/form-data; boundary=x", size: 33, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("a", tt.size)))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", gjson.Get(w.Body.String(), "code").String())
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestRequestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	w := httptest.NewRecorder()
	RequestTimeout(20*time.Millisecond)(slow).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "TIMEOUT", gjson.Get(w.Body.String(), "code").String())
}

func TestRequestTimeout_FastHandler(t *testing.T) {
	w := httptest.NewRecorder()
	RequestTimeout(time.Second)(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestRequestTimeout_HeadersAfterDeadlineDropped(t *testing.T) {
	finished := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(finished)
		<-r.Context().Done()
		for i := 0; i < 100; i++ {
			w.Header().Set("X-Late", "true")
		}
	})

	w := httptest.NewRecorder()
	RequestTimeout(20*time.Millisecond)(slow).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	<-finished

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Empty(t, w.Header().Get("X-Late"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestRequestTimeout_HeadersReachResponse(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
		w.Header().Set("X-Custom", "kept")
		_, _ = w.Write([]byte("ok"))
		w.Header().Set("X-After-Write", "ignored")
	})

	w := httptest.NewRecorder()
	w.Header().Set(RequestIDHeader, "upstream-id")
	RequestTimeout(time.Second)(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "kept", w.Header().Get("X-Custom"))
	assert.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
	assert.Empty(t, w.Header().Get("X-After-Write"))
}

func TestRequestLogging_RequestID(t *testing.T) {
	var seen string
	handler := RequestLogging(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, "upstream-id", seen)
}

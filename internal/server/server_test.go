package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/touch/internal/config"
	"github.com/tartampluch/touch/internal/scheduler"
)

func feedRequest(srv *FeedServer, method string, header http.Header) *http.Response {
	return request(srv, method, config.RouteFeed, header)
}

func request(srv *FeedServer, method, path string, header http.Header) *http.Response {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w.Result()
}

// TestHandler_ServingFeed checks headers and body once a queue is published.
func TestHandler_ServingFeed(t *testing.T) {
	srv := NewFeedServer("0")
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, srv.Publish([]scheduler.Notification{{
		Identifier: config.IDDailyCheck,
		Title:      config.FallbackDailyTitle,
		Data:       map[string]string{config.DataKeyType: config.TypeDailyCheck},
		Trigger:    scheduler.Every(config.DailyPeriodSeconds),
	}}, now))
	assert.True(t, srv.Ready())

	resp := feedRequest(srv, http.MethodGet, nil)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
	assert.Contains(t, resp.Header.Get(config.HeaderCacheControl), "no-cache")
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))
	assert.NotEmpty(t, resp.Header.Get(config.HeaderLastModified))

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "UID:daily-check@touch")
	assert.Contains(t, string(body), "RRULE:FREQ=DAILY;INTERVAL=1")
}

// TestHandler_Head returns headers only.
func TestHandler_Head(t *testing.T) {
	srv := NewFeedServer("0")
	srv.Update([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))

	resp := feedRequest(srv, http.MethodHead, nil)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Empty(t, body)
}

// TestHandler_Conditional covers ETag and Last-Modified revalidation.
func TestHandler_Conditional(t *testing.T) {
	srv := NewFeedServer("0")
	srv.Update([]byte("QUEUE_V1"))

	first := feedRequest(srv, http.MethodGet, nil)
	etag := first.Header.Get(config.HeaderETag)
	lastMod := first.Header.Get(config.HeaderLastModified)
	_ = first.Body.Close()
	require.NotEmpty(t, etag, "Server must provide an ETag")

	t.Run("IfNoneMatch", func(t *testing.T) {
		resp := feedRequest(srv, http.MethodGet, http.Header{config.HeaderIfNoneMatch: {etag}})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotModified, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Empty(t, body, "Body must be empty on 304 Not Modified")
	})

	t.Run("IfModifiedSince", func(t *testing.T) {
		resp := feedRequest(srv, http.MethodGet, http.Header{config.HeaderIfModifiedSince: {lastMod}})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	})

	t.Run("StaleETag", func(t *testing.T) {
		srv.Update([]byte("QUEUE_V2"))
		resp := feedRequest(srv, http.MethodGet, http.Header{config.HeaderIfNoneMatch: {etag}})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEqual(t, etag, resp.Header.Get(config.HeaderETag))
	})
}

// TestHandler_MethodNotAllowed ensures strictly GET and HEAD are accepted.
func TestHandler_MethodNotAllowed(t *testing.T) {
	srv := NewFeedServer("0")
	srv.Update([]byte("x"))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		resp := feedRequest(srv, method, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, method)
		assert.Equal(t, config.AllowedMethods, resp.Header.Get(config.HeaderAllow))
		_ = resp.Body.Close()
	}
}

// TestHandler_UnknownPath only serves the feed route.
func TestHandler_UnknownPath(t *testing.T) {
	srv := NewFeedServer("0")
	srv.Update([]byte("x"))

	for _, path := range []string{"/", "/reminders", config.RouteFeed + "/x"} {
		resp := request(srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		_ = resp.Body.Close()
	}
}

// TestHandler_Initializing verifies the 503 behavior before the first publish.
func TestHandler_Initializing(t *testing.T) {
	srv := NewFeedServer("0")
	assert.False(t, srv.Ready())

	resp := feedRequest(srv, http.MethodGet, nil)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, config.RetryAfterSeconds, resp.Header.Get(config.HeaderRetryAfter))
}

// TestServer_ConcurrentPublish hammers Update while handlers read.
// Run with `go test -race`.
func TestServer_ConcurrentPublish(t *testing.T) {
	srv := NewFeedServer("0")
	var wg sync.WaitGroup
	end := time.Now().Add(300 * time.Millisecond)

	for w := range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; time.Now().Before(end); i++ {
				srv.Update([]byte(fmt.Sprintf("QUEUE:%d-%d", w, i)))
				time.Sleep(time.Microsecond)
			}
		}()
	}

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				resp := feedRequest(srv, http.MethodGet, nil)
				if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
					t.Errorf("Unexpected status code during race test: %d", resp.StatusCode)
				}
				_ = resp.Body.Close()
			}
		}()
	}

	wg.Wait()
}

// TestServer_Lifecycle binds a real listener and shuts it down.
func TestServer_Lifecycle(t *testing.T) {
	const port = "18099"

	srv := NewFeedServer(port)
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- srv.Start(ctx)
	}()

	url := "http://127.0.0.1:" + port + config.RouteFeed

	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 2*time.Second, 50*time.Millisecond, "Server failed to bind/listen in time")

	resp, err := http.Get(url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()

	require.NoError(t, srv.Publish(nil, time.Now()))

	resp, err = http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")

	// Unknown paths are not served.
	other, err := http.Get("http://127.0.0.1:" + port + "/other")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, other.StatusCode)
	_ = other.Body.Close()

	cancel()

	select {
	case err := <-errChan:
		assert.NoError(t, err, "Server should shutdown gracefully without error")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}

func TestServer_PortRequired(t *testing.T) {
	err := NewFeedServer("").Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrPortRequired)
}

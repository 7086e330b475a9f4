package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/touch/internal/config"
	"github.com/tartampluch/touch/internal/scheduler"
)

// feedSnapshot is one published rendering of the queue.
type feedSnapshot struct {
	body    []byte
	etag    string
	modTime time.Time
}

// FeedServer serves the reminder queue as an ICS feed on localhost. It only
// answers config.RouteFeed.
type FeedServer struct {
	// Swapped on every queue change, read by every calendar poll.
	snapshot atomic.Pointer[feedSnapshot]
	Port     string
}

var _ http.Handler = (*FeedServer)(nil)

// NewFeedServer creates a feed server bound to port on localhost.
func NewFeedServer(port string) *FeedServer {
	return &FeedServer{Port: port}
}

// Start listens until ctx ends, then shuts down gracefully.
func (s *FeedServer) Start(ctx context.Context) error {
	if s.Port == "" {
		return errors.New(config.ErrPortRequired)
	}

	srv := &http.Server{
		Addr:         config.LocalhostBindAddr + config.AddrSeparator + s.Port,
		Handler:      s,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}
	log := slog.With(config.LogKeyComponent, config.CompServer)

	listenErr := make(chan error, config.ChannelBufferSize)
	go func() {
		log.Info(config.MsgServerListen, config.LogKeyPort, s.Port)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	case <-ctx.Done():
	}

	log.Info(config.MsgServerStop)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
	}
	return nil
}

// Publish renders notifs and serves the result from now on.
func (s *FeedServer) Publish(notifs []scheduler.Notification, now time.Time) error {
	data, err := RenderCalendar(notifs, now)
	if err != nil {
		return err
	}
	s.Update(data)
	return nil
}

// Ready reports whether a feed has been published.
func (s *FeedServer) Ready() bool {
	return s.snapshot.Load() != nil
}

// Update replaces the served body. The ETag is the body's SHA-256, so an
// unchanged queue keeps validating against calendar caches.
func (s *FeedServer) Update(data []byte) {
	sum := sha256.Sum256(data)
	snap := &feedSnapshot{
		body:    data,
		etag:    fmt.Sprintf(config.FormatETag, hex.EncodeToString(sum[:])),
		modTime: time.Now().UTC(),
	}
	s.snapshot.Store(snap)

	slog.Debug(config.MsgFeedUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, snap.etag)
}

// ServeHTTP answers GET and HEAD on the feed route. Conditional requests
// (If-None-Match, If-Modified-Since) are resolved by http.ServeContent.
func (s *FeedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != config.RouteFeed {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	snap := s.snapshot.Load()
	if snap == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	h := w.Header()
	h.Set(config.HeaderContentType, config.MimeTextCalendar)
	h.Set(config.HeaderXContentType, config.MimeNoSniff)
	h.Set(config.HeaderCacheControl, config.CacheControlPrivate)
	h.Set(config.HeaderETag, snap.etag)
	http.ServeContent(w, r, config.RouteFeed, snap.modTime, bytes.NewReader(snap.body))
}

package www

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/icodeforyou/spotprice-go/config"
	"github.com/icodeforyou/spotprice-go/database"
	"github.com/icodeforyou/spotprice-go/types"
)

// FeedSource is the persisted public feed, *feed.File implements it.
type FeedSource interface {
	Path() string
	Load() ([]types.FeedEntry, error)
}

type Server struct {
	logger  *slog.Logger
	config  config.AppConfigApi
	db      *database.Database
	feed    FeedSource
	hub     *Hub
	handler http.Handler
	now     func() time.Time
}

// NewServer wires the handlers. trigger starts an update outside the
// schedule and must not block.
func NewServer(logger *slog.Logger, cnfg config.AppConfigApi, db *database.Database, feed FeedSource, trigger func()) *Server {
	logger = logger.With("module", "www")
	s := &Server{
		logger: logger,
		config: cnfg,
		db:     db,
		feed:   feed,
		hub:    NewHub(logger),
		now:    time.Now,
	}

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	now := func() time.Time { return s.now() }
	mux := http.NewServeMux()

	mux.Handle("/spotdata.json", logReqMW(NewFeedHandler(
		logger.With(slog.String("handler", "feed")),
		feed)))

	mux.Handle("/stats", logReqMW(NewStatsHandler(
		logger.With(slog.String("handler", "stats")),
		feed,
		now)))

	mux.Handle("/chart", logReqMW(NewChartHandler(
		logger.With(slog.String("handler", "chart")),
		db,
		feed,
		now)))

	mux.Handle("/prices", logReqMW(NewPricesHandler(
		logger.With(slog.String("handler", "prices")),
		db,
		now)))

	mux.Handle("/runs", logReqMW(NewRunsHandler(
		logger.With(slog.String("handler", "runs")),
		db)))

	mux.Handle("/log", logReqMW(NewLogHandler(
		logger.With(slog.String("handler", "log")),
		db)))

	mux.Handle("/update", logReqMW(NewUpdateHandler(
		logger.With(slog.String("handler", "update")),
		trigger)))

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		if msg, err := feedMessage(s.feed); err != nil {
			s.logger.Warn("failed to load feed for new client", slog.Any("error", err))
		} else {
			client.send <- msg
		}
		if !s.hub.register(client) {
			client.conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	})

	s.handler = mux
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves until ctx is cancelled. Every rewrite of the feed file is
// pushed to the websocket clients.
func (s *Server) Run(ctx context.Context) error {
	watcher, err := NewFeedWatcher(s.logger, s.feed, s.hub)
	if err != nil {
		return err
	}
	defer watcher.Close()

	go s.hub.Run(ctx)
	go watcher.Run(ctx)

	addr := fmt.Sprintf("%s:%d", s.config.Address, s.config.Port)
	s.logger.Info("starting server...", slog.String("addr", addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErrors := make(chan error, 1)
	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-srvErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	}
}

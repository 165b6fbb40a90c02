package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lepinkainen/catalink/internal/config"
	"github.com/lepinkainen/catalink/internal/metrics"
	"github.com/lepinkainen/catalink/internal/search"
	"github.com/lepinkainen/catalink/internal/server"
)

// ServeCmd runs the HTTP front end
type ServeCmd struct {
	Addr string `help:"Listen address (defaults to server.addr in config)"`
}

var listenAndServe = func(ctx context.Context, srv *server.Server, addr string) error {
	return srv.ListenAndServe(ctx, addr)
}

func (s *ServeCmd) Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	searchers := map[search.Strategy]server.Searcher{}
	for _, strategy := range []search.Strategy{search.GeneralCatalog, search.Article} {
		searcher, err := newSearcher(cfg, strategy, recorder)
		if err != nil {
			slog.Warn("Strategy disabled", "strategy", strategy, "error", err)
			continue
		}
		searchers[strategy] = searcher
	}

	addr := s.Addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return listenAndServe(ctx, server.New(searchers, recorder.Handler()), addr)
}

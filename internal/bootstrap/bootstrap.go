package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"http1server/internal/admission"
	"http1server/internal/cgi"
	"http1server/internal/config"
	"http1server/internal/monitor"
	"http1server/internal/random"
	"http1server/internal/registry"
	"http1server/internal/resource"
	"http1server/internal/transport"
	"http1server/internal/version"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const pprofReadHeaderTimeout = 5 * time.Second

type MonitorFunc func(ctx context.Context, source monitor.Source, title string) error

type Bootstrap struct {
	Config     config.Config
	Randomizer random.Random
	Registry   registry.Registry
	Pool       admission.Pool
	Server     transport.Transport
	Monitor    MonitorFunc
	SignalChan chan os.Signal
}

func New(conf config.Config) (*Bootstrap, error) {
	root, err := filepath.Abs(conf.DocRoot())
	if err != nil {
		return nil, fmt.Errorf("resolve document root: %w", err)
	}

	randomizer := random.New()
	connRegistry := registry.NewRegistry()
	handler := transport.NewHTTPHandler(conf, resource.NewResolver(root), cgi.NewRunner(conf.CGITimeout()), connRegistry)
	pool := admission.New(handler, conf.MaxWorkers(), conf.WarmWorkers(), connRegistry, randomizer)

	return &Bootstrap{
		Config:     conf,
		Randomizer: randomizer,
		Registry:   connRegistry,
		Pool:       pool,
		Server:     transport.NewHTTPServer(conf.Port(), pool, conf.ReadTimeout(), conf.Linger()),
		Monitor: func(ctx context.Context, source monitor.Source, title string) error {
			return monitor.Run(ctx, source, title)
		},
		SignalChan: make(chan os.Signal, 1),
	}, nil
}

// Run serves until a signal arrives, the monitor is closed or a service
// fails. In-flight connections are allowed to finish before it returns.
func (b *Bootstrap) Run() error {
	log.Info().Str("version", version.Get().String()).Msg("starting")

	listener, err := b.Server.Listen()
	if err != nil {
		b.Pool.Close()
		return fmt.Errorf("failed to start http server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signal.Notify(b.SignalChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(b.SignalChan)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := b.Server.Serve(listener)
		if errors.Is(err, net.ErrClosed) && gctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("error when serving http server: %w", err)
	})

	g.Go(func() error {
		select {
		case sig := <-b.SignalChan:
			log.Info().Str("signal", sig.String()).Msg("received signal, initiating graceful shutdown")
			cancel()
		case <-gctx.Done():
		}
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Error().Err(err).Msg("failed to close listener")
		}
		return nil
	})

	if b.Config.PprofEnabled() {
		b.startPprof(gctx, g)
	}

	if b.Config.MonitorEnabled() {
		g.Go(func() error {
			title := fmt.Sprintf("http1server :%s", b.Config.Port())
			if err := b.Monitor(gctx, b.Pool, title); err != nil {
				return fmt.Errorf("monitor: %w", err)
			}
			if gctx.Err() == nil {
				log.Info().Msg("monitor closed, initiating graceful shutdown")
				cancel()
			}
			return nil
		})
	}

	log.Info().
		Str("addr", listener.Addr().String()).
		Int("capacity", b.Config.MaxWorkers()).
		Int("warm", b.Config.WarmWorkers()).
		Msg("all services started successfully")

	err = g.Wait()

	b.Pool.Close()
	stats := b.Pool.Stats()
	log.Info().
		Uint64("admitted", stats.Admitted).
		Uint64("rejected", stats.Rejected).
		Msg("shutdown complete")
	return err
}

func (b *Bootstrap) startPprof(ctx context.Context, g *errgroup.Group) {
	srv := &http.Server{
		Addr:              fmt.Sprintf("localhost:%s", b.Config.PprofPort()),
		ReadHeaderTimeout: pprofReadHeaderTimeout,
	}

	g.Go(func() error {
		log.Info().Msgf("starting pprof server on http://%s/debug/pprof/", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("pprof server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return srv.Close()
	})
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/avatars"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/config"
	gatewayserver "github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/server"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/messenger"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/messenger/discord"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/presence"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/presence/store"
)

type serverDeps struct {
	loadConfig   func() (config.Config, error)
	newMessenger func(token string) (messenger.Messenger, func() error, error)
	openStore    func(path string) (presence.Store, func() error, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultServerDeps() serverDeps {
	return serverDeps{
		loadConfig: config.LoadFromEnv,
		newMessenger: func(token string) (messenger.Messenger, func() error, error) {
			m, err := discord.New(token)
			if err != nil {
				return nil, nil, err
			}
			if err := m.Open(); err != nil {
				return nil, nil, err
			}
			return m, m.Close, nil
		},
		openStore: func(path string) (presence.Store, func() error, error) {
			s, err := store.Open(path)
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func runServer(ctx context.Context, logger *slog.Logger, deps serverDeps) error {
	if deps.loadConfig == nil || deps.newMessenger == nil || deps.openStore == nil {
		return errors.New("missing dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	token, err := cfg.ResolveDiscordToken()
	if err != nil {
		return err
	}
	msg, closeMessenger, err := deps.newMessenger(token)
	if err != nil {
		return fmt.Errorf("start messenger: %w", err)
	}
	defer func() { _ = closeMessenger() }()

	snapStore, closeStore, err := deps.openStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer func() { _ = closeStore() }()

	svc := presence.New(presence.Options{
		Messenger:     msg,
		Logger:        logger,
		InviteBaseURL: cfg.InviteBaseURL,
		CodeTTL:       cfg.CodeTTL,
		InviteTTL:     cfg.InviteTTL,
		LiveStateTTL:  cfg.LiveStateTTL,
	})

	snap, err := snapStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("load persisted state: %w", err)
	}
	svc.Restore(snap)
	logger.Info("restored persisted state", "sessions", len(snap.Sessions))

	avatarStore, err := avatars.NewStore(cfg.AvatarDir)
	if err != nil {
		return fmt.Errorf("open avatar store: %w", err)
	}

	gw := gatewayserver.New(cfg, logger, svc, avatarStore)
	httpSrv := buildHTTPServer(cfg, gw.Handler())

	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()
	go svc.RunJanitor(bgCtx, cfg.JanitorInterval)
	persistDone := make(chan struct{})
	go func() {
		defer close(persistDone)
		svc.RunPersistence(bgCtx, snapStore, cfg.PersistInterval)
	}()

	logger.Info("starting server", "addr", cfg.Addr)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer drainCancel()
	gw.Drain(drainCtx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	// Stopping the persistence loop triggers its final save.
	bgCancel()
	<-persistDone

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps serverDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "gooftuber-server: load .env: %v\n", err)
		return 1
	}

	if err := runServer(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "gooftuber-server: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultServerDeps()))
}

// Package app initializes and runs the marketfeed client. It opens the local
// cache, unlocks the keyring, restores the last persisted read model, starts
// consuming relay events, and flushes a fresh snapshot on shutdown.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/openstall/marketfeed/internal/cache"
	"github.com/openstall/marketfeed/internal/config"
	"github.com/openstall/marketfeed/internal/logging"
	"github.com/openstall/marketfeed/internal/market"
	"github.com/openstall/marketfeed/internal/market/commands"
	"github.com/openstall/marketfeed/internal/relayfeed"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	snapshots cache.SnapshotRepository
	keyring   cache.KeyringRepository
	feed      *relayfeed.Feed
	engine    *market.Engine
	commands  *commands.Commands
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	db, err := cache.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("cache init error: %w", err)
	}

	feed := relayfeed.New(cfg.RelayURLs, logger)
	engine := market.NewEngine(feed,
		market.WithLogger(logger),
		market.WithDebounce(cfg.DebounceInterval),
	)

	return &App{
		config:    cfg,
		logger:    logger,
		db:        db,
		snapshots: cache.NewSQLiteSnapshotRepository(db),
		keyring:   cache.NewSQLiteKeyringRepository(db),
		feed:      feed,
		engine:    engine,
		commands:  commands.New(feed),
	}, nil
}

// Engine exposes the read model for presentation layers.
func (app *App) Engine() *market.Engine {
	return app.engine
}

// Commands exposes the publishing side.
func (app *App) Commands() *commands.Commands {
	return app.commands
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) unlock(ctx context.Context) error {
	fmt.Print("Keyring passphrase: ")
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading passphrase: %w", err)
	}
	return app.keyring.Unlock(ctx, passphrase)
}

// start restores the cached read model, rebinds stored secret keys and
// begins consuming relay events for the tracked vendors.
func (app *App) start(ctx context.Context) error {
	snap, err := app.snapshots.Load(ctx)
	if err != nil {
		return err
	}
	app.engine.Restore(ctx, snap)

	keys, err := app.keyring.All(ctx)
	if err != nil {
		return err
	}

	secretKeys := make([]string, 0, len(keys))
	for _, sk := range keys {
		secretKeys = append(secretKeys, sk)
	}
	if len(secretKeys) == 0 {
		app.logger.Info(ctx, "no tracked vendors yet")
		return nil
	}
	return app.engine.TrackKeys(ctx, secretKeys)
}

// shutdown waits for in-flight draft decryptions, flushes a snapshot to the
// cache and releases relay connections.
func (app *App) shutdown(ctx context.Context) {
	app.engine.Wait()

	if err := app.snapshots.Save(ctx, app.engine.Snapshot()); err != nil {
		app.logger.Error(ctx, "saving snapshot", "error", err)
	}

	app.engine.Clear()
	app.feed.Close()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing cache", "error", err)
	}
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting marketfeed", "relays", app.config.RelayURLs)

	app.initSignalHandler(cancelFunc)

	if err := app.unlock(ctx); err != nil {
		return err
	}
	if err := app.start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	app.logger.Info(context.Background(), "shutting down")
	app.shutdown(context.Background())
	return nil
}

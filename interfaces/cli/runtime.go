package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/dbmcp"
	"github.com/felixgeelhaar/dbmcp/application"
	"github.com/felixgeelhaar/dbmcp/domain/activity"
	domainconfig "github.com/felixgeelhaar/dbmcp/domain/config"
	"github.com/felixgeelhaar/dbmcp/domain/notification"
	"github.com/felixgeelhaar/dbmcp/domain/pack"
	"github.com/felixgeelhaar/dbmcp/infrastructure/connector"
	"github.com/felixgeelhaar/dbmcp/infrastructure/llm"
	"github.com/felixgeelhaar/dbmcp/infrastructure/logging"
	infranotify "github.com/felixgeelhaar/dbmcp/infrastructure/notification"
	"github.com/felixgeelhaar/dbmcp/infrastructure/observability"
	"github.com/felixgeelhaar/dbmcp/infrastructure/storage/memory"
	"github.com/felixgeelhaar/dbmcp/infrastructure/storage/sqlite"
	activitypack "github.com/felixgeelhaar/dbmcp/pack/activity"
	"github.com/felixgeelhaar/dbmcp/pack/database"
	llmpack "github.com/felixgeelhaar/dbmcp/pack/llm"
	"github.com/felixgeelhaar/dbmcp/pack/notify"
)

// runtime is the wired server: every component built from one Config.
type runtime struct {
	config     domainconfig.Config
	logger     *bolt.Logger
	telemetry  *observability.Provider
	activity   activity.Store
	dispatcher *application.Dispatcher
	packs      []*pack.Pack
}

// runtimeOptions adjust how the runtime is assembled.
type runtimeOptions struct {
	// memoryActivity keeps the activity log in memory regardless of config.
	memoryActivity bool
}

// newRuntime builds the dispatcher and installs every pack the
// configuration enables.
func newRuntime(cfg domainconfig.Config, logger *bolt.Logger, opts runtimeOptions) (*runtime, error) {
	rt := &runtime{config: cfg, logger: logging.OrDiscard(logger)}

	telemetry, err := observability.New(
		observability.WithService(dbmcp.ServerName, dbmcp.Version),
		observability.WithExporter(observability.ExporterType(cfg.Tracing.Exporter), cfg.Tracing.Endpoint, cfg.Tracing.Insecure),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	rt.telemetry = telemetry

	instruments, err := observability.NewInstruments(telemetry.Meter())
	if err != nil {
		rt.close(context.Background())
		return nil, fmt.Errorf("instruments: %w", err)
	}

	store, err := openActivity(cfg.Activity, opts)
	if err != nil {
		rt.close(context.Background())
		return nil, err
	}
	rt.activity = store

	registry := memory.NewToolRegistry()
	connectors := connector.FromConfig(cfg)
	rt.dispatcher, err = application.NewDispatcher(application.DispatcherConfig{
		Registry:    registry,
		Connectors:  connectors,
		Logger:      rt.logger,
		Tracer:      telemetry.Tracer(),
		Instruments: instruments,
	})
	if err != nil {
		rt.close(context.Background())
		return nil, err
	}

	if err := rt.installPacks(connectors); err != nil {
		rt.close(context.Background())
		return nil, err
	}
	if err := pack.Install(registry, rt.packs...); err != nil {
		rt.close(context.Background())
		return nil, fmt.Errorf("install packs: %w", err)
	}
	return rt, nil
}

func openActivity(cfg domainconfig.ActivityConfig, opts runtimeOptions) (activity.Store, error) {
	if opts.memoryActivity || cfg.DSN == "" {
		return memory.NewActivityStore(), nil
	}
	store, err := sqlite.NewActivityStore(sqlite.DefaultConfig(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("open activity log: %w", err)
	}
	return store, nil
}

func (rt *runtime) installPacks(connectors *connector.Set) error {
	cfg := rt.config

	var completer *llm.OpenAI
	if cfg.LLM.Configured() {
		completer = llm.NewOpenAI(llm.FromConfig(cfg.LLM))
	}

	dbConfig := database.Config{Runner: rt.dispatcher, Backends: connectors.Backends()}
	if completer != nil {
		dbConfig.Completer = completer
	}
	db, err := database.New(dbConfig)
	if err != nil {
		return fmt.Errorf("database pack: %w", err)
	}
	rt.packs = append(rt.packs, db)

	act, err := activitypack.New(rt.activity)
	if err != nil {
		return fmt.Errorf("activity pack: %w", err)
	}
	rt.packs = append(rt.packs, act)

	if cfg.Notification.Configured() {
		validator, err := notification.NewValidator(cfg.Notification.PhonePattern)
		if err != nil {
			return fmt.Errorf("notification validator: %w", err)
		}
		gateway := infranotify.NewGateway(infranotify.FromConfig(cfg.Notification), validator,
			infranotify.WithActivity(rt.activity),
			infranotify.WithLogger(rt.logger),
		)
		n, err := notify.New(gateway)
		if err != nil {
			return fmt.Errorf("notify pack: %w", err)
		}
		rt.packs = append(rt.packs, n)
	}

	if completer != nil {
		l, err := llmpack.New(completer)
		if err != nil {
			return fmt.Errorf("llm pack: %w", err)
		}
		rt.packs = append(rt.packs, l)
	}
	return nil
}

// close flushes telemetry and releases the activity log.
func (rt *runtime) close(ctx context.Context) error {
	var errs []error
	if rt.activity != nil {
		errs = append(errs, rt.activity.Close())
	}
	if rt.telemetry != nil {
		errs = append(errs, rt.telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

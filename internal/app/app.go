package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/niksmo/prodmng/config"
	"github.com/niksmo/prodmng/internal/adapter"
	"github.com/niksmo/prodmng/internal/adapter/fakestore"
	"github.com/niksmo/prodmng/internal/adapter/httphandler"
	"github.com/niksmo/prodmng/internal/adapter/idgen"
	"github.com/niksmo/prodmng/internal/adapter/kafka"
	"github.com/niksmo/prodmng/internal/adapter/storage"
	"github.com/niksmo/prodmng/internal/core/domain"
	"github.com/niksmo/prodmng/internal/core/port"
	"github.com/niksmo/prodmng/internal/core/service"
	"github.com/niksmo/prodmng/pkg/schema"
	"github.com/twmb/franz-go/pkg/sr"
)

type outbound struct {
	slots    port.SlotStorage
	remote   port.RemoteCatalog
	ids      port.IDGenerator
	events   port.ProductEventsPublisher
	closeFns []func()
}

type App struct {
	ctx        context.Context
	cfg        config.Config
	outbound   outbound
	store      *service.Store
	httpServer httphandler.HTTPServer
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initSlots()
	app.initRemote()
	app.initIDGenerator()
	app.initEvents()
	app.initStore()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initSlots() {
	const op = "App.initSlots"

	cfg := app.cfg.Overlay
	switch cfg.Backend {
	case "memory":
		app.outbound.slots = storage.NewMemorySlots()
	case "sql":
		slots, err := storage.NewSQLSlots(app.ctx, cfg.SQLDSN)
		if err != nil {
			app.fallDown(op, err)
		}
		app.outbound.slots = slots
		app.outbound.closeFns = append(app.outbound.closeFns, slots.Close)
	default:
		slots, err := storage.NewFileSlots(cfg.Dir)
		if err != nil {
			app.fallDown(op, err)
		}
		app.outbound.slots = slots
	}

	slog.Info("overlay storage is ready", "op", op, "backend", cfg.Backend)
}

func (app *App) initRemote() {
	const op = "App.initRemote"

	cfg := app.cfg.Remote
	cl, err := fakestore.NewClient(
		fakestore.BaseURLOpt(cfg.BaseURL),
		fakestore.TimeoutOpt(cfg.Timeout),
		fakestore.RetryOpt(cfg.RetryAttempts, cfg.RetryDelay),
		fakestore.CredentialsOpt(cfg.Token, cfg.TempToken),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.outbound.remote = cl
}

func (app *App) initIDGenerator() {
	const op = "App.initIDGenerator"

	ids, ok := idgen.New(app.cfg.IDGenerator)
	if !ok {
		app.fallDown(op, fmt.Errorf("unknown id generator %q", app.cfg.IDGenerator))
	}
	app.outbound.ids = ids
}

func (app *App) initEvents() {
	const op = "App.initEvents"

	cfg := app.cfg.Events
	if !cfg.Enabled() {
		slog.Info("product events are disabled", "op", op)
		return
	}

	srClient, err := sr.NewClient(sr.URLs(cfg.SchemaRegistryURLs...))
	if err != nil {
		app.fallDown(op, err)
	}

	serde, err := schema.NewSerdeProductEventV1(
		app.ctx,
		schema.SubjectOpt(cfg.Topic+"-value"),
		schema.SchemaIdentifierOpt(schema.NewRegistryIdentifier(srClient)),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	tlsConfig, err := adapter.MakeTLSConfig(cfg.TLS.CA, cfg.TLS.Cert, cfg.TLS.Key)
	if err != nil {
		app.fallDown(op, err)
	}

	producer, err := kafka.NewProductEventsProducer(
		kafka.ProducerClientOpt(app.ctx, cfg.SeedBrokers, cfg.Topic, tlsConfig),
		kafka.ProducerEncoderOpt(serde),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.outbound.events = producer
	app.outbound.closeFns = append(app.outbound.closeFns, producer.Close)
	slog.Info("product events are enabled", "op", op, "topic", cfg.Topic)
}

func (app *App) initStore() {
	const op = "App.initStore"
	log := slog.With("op", op)

	store := service.New(
		app.outbound.remote,
		service.NewOverlay(app.outbound.slots, app.cfg.Overlay.Key),
		app.outbound.ids,
		app.outbound.events,
		service.RemoteDeadlineOpt(app.cfg.Remote.Deadline),
	)
	store.Init(app.ctx)

	if app.cfg.Remote.RefreshOnStart {
		view, err := store.Refresh(app.ctx)
		switch {
		case errors.Is(err, domain.ErrRemoteUnavailable):
			log.Warn("starting with locally stored products",
				"nProducts", view.Total)
		case err != nil:
			app.fallDown(op, err)
		default:
			log.Info("catalog loaded", "nProducts", view.Total)
		}
	}

	app.store = store
}

func (app *App) initInboundAdapters() {
	mux := http.NewServeMux()
	httphandler.RegisterProducts(mux, app.store, app.store, app.store)

	handler := httphandler.AllowJSON(mux)
	app.httpServer = httphandler.NewHTTPServer(
		app.cfg.HTTPServerAddr, handler, app.cfg.RequestTimeout,
	)
}

func (app *App) Run(stopFn context.CancelFunc) {
	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	for i := len(app.outbound.closeFns) - 1; i >= 0; i-- {
		app.outbound.closeFns[i]()
	}

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}

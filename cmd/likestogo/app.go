package main

import (
	"context"

	"github.com/ZUGAZ/likes-to-go/internal/browser"
	"github.com/ZUGAZ/likes-to-go/internal/content"
	"github.com/ZUGAZ/likes-to-go/internal/metrics"
	"github.com/ZUGAZ/likes-to-go/internal/orchestrator"
	"github.com/ZUGAZ/likes-to-go/internal/scrapeloop"
	"github.com/ZUGAZ/likes-to-go/internal/transport"
	"github.com/ZUGAZ/likes-to-go/pkg/collection"
	"github.com/ZUGAZ/likes-to-go/pkg/config"
	"github.com/ZUGAZ/likes-to-go/pkg/extract"
	"github.com/ZUGAZ/likes-to-go/pkg/logger"
	"github.com/ZUGAZ/likes-to-go/pkg/message"
	"github.com/ZUGAZ/likes-to-go/pkg/storage"
)

// app wires one control side to the pages it opens. Each opened page gets
// its own content handler on the bus.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Metrics

	bus      *transport.Bus
	provider *browser.Provider
	orch     *orchestrator.Orchestrator
	store    *storage.Manager

	extractor  *extract.Extractor
	driverOpts []scrapeloop.Option
	onExport   orchestrator.ExportFunc
}

type appOption func(*app)

// withDriverOptions passes extra options to every scrape loop
func withDriverOptions(opts ...scrapeloop.Option) appOption {
	return func(a *app) { a.driverOpts = append(a.driverOpts, opts...) }
}

func withExportHook(fn orchestrator.ExportFunc) appOption {
	return func(a *app) { a.onExport = fn }
}

// newApp builds the whole pipeline. Pages live until ctx is done.
func newApp(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...appOption) (*app, error) {
	a := &app{
		cfg:       cfg,
		log:       log,
		metrics:   metrics.New(),
		bus:       transport.NewBus(),
		extractor: extract.New(cfg.Selectors),
	}
	for _, opt := range opts {
		opt(a)
	}

	store, err := storage.NewManager(cfg.Output.Directory, cfg.Output.FileNamePattern,
		storage.WithOverwrite(cfg.Output.OverwriteExisting))
	if err != nil {
		return nil, err
	}
	a.store = store

	fetcher, err := browser.NewFetcher(browser.FetcherConfig{
		Timeout:           cfg.Browser.Timeout,
		UserAgent:         cfg.Browser.UserAgent,
		RequestsPerMinute: cfg.Browser.RequestsPerMinute,
		CloudflareBypass:  cfg.Browser.CloudflareBypass,
		MaxRetries:        cfg.Browser.MaxRetries,
		Logger:            log,
	})
	if err != nil {
		return nil, err
	}

	a.provider, err = browser.NewProvider(ctx, fetcher, a.extractor, browser.Options{
		BaseURL:          cfg.Collection.BaseURL,
		NextPageSelector: cfg.Browser.NextPageSelector,
		NodeID:           1,
		Attach:           a.attach,
		Detach:           a.bus.Detach,
		Logger:           log,
	})
	if err != nil {
		return nil, err
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(a.metrics),
	}
	if a.onExport != nil {
		orchOpts = append(orchOpts, orchestrator.OnExport(a.onExport))
	}
	a.orch = orchestrator.New(collection.NewMachine(cfg.Collection.StartURL), a.provider, a.bus, a.store, orchOpts...)
	a.bus.SetControl(a.orch.Receive)

	return a, nil
}

// attach puts a content handler for page on the bus
func (a *app) attach(page *browser.Page) {
	driverOpts := append([]scrapeloop.Option{
		scrapeloop.WithLogger(a.log.WithField("context", page.ID().String())),
		scrapeloop.WithDelayObserver(a.metrics.ObservePacingDelay),
	}, a.driverOpts...)

	driver := scrapeloop.NewDriver(a.extractor, scrapeloop.Config{
		StagnationPasses: a.cfg.Collection.StagnationPasses,
		SettleWait:       a.cfg.Collection.SettleWait,
	}, driverOpts...)

	h := content.NewHandler(page.Context(), page, driver, a.bus, a.log)
	a.bus.Attach(page.ID(), h.Handle)
}

// start runs the orchestrator until ctx is done
func (a *app) start(ctx context.Context) <-chan error {
	errc := make(chan error, 1)
	go func() {
		errc <- a.orch.Run(ctx)
	}()
	return errc
}

// send delivers m to the control side the same way every front end does
func (a *app) send(ctx context.Context, m message.Message) message.StateResponse {
	raw, err := message.Encode(m)
	if err != nil {
		return message.ErrorResponse(err)
	}
	return a.Handle(ctx, raw)
}

// Handle carries a raw message over the transport to the control endpoint
// and validates the reply
func (a *app) Handle(ctx context.Context, raw []byte) message.StateResponse {
	reply, err := a.bus.ToControl(ctx, raw)
	if err != nil {
		return message.ErrorResponse(err)
	}
	resp, err := message.ParseStateResponse(reply)
	if err != nil {
		return message.ErrorResponse(err)
	}
	return resp
}

func (a *app) close() {
	a.provider.Shutdown()
}

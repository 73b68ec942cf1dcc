package app

import (
	"fmt"
	"log/slog"

	"casesearch/config"
	"casesearch/internal/services/api"
	"casesearch/internal/services/controller"
	"casesearch/internal/services/form"
	"casesearch/internal/services/notify"
	"casesearch/internal/services/voice"
	"casesearch/internal/utils/metrics"
)

type App struct {
	log        *slog.Logger
	cfg        *config.Config
	Client     *api.Client
	StorageApp *StorageApp
	Metrics    *metrics.Metrics
}

// New wires the API client with its cache and metrics.
func New(log *slog.Logger, cfg *config.Config, notifier notify.Notifier) (*App, error) {
	const op = "app.New"

	contract, err := api.NewContract(cfg.API.Contract, Paths(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := &App{
		log:     log,
		cfg:     cfg,
		Metrics: &metrics.Metrics{},
	}

	opts := api.Options{
		BaseURL:  cfg.API.BaseURL,
		Timeout:  cfg.API.Timeout,
		Contract: contract,
		Notifier: notifier,
		Metrics:  a.Metrics,
	}

	if cfg.Cache.Enabled {
		a.StorageApp, err = NewStorageApp(log, cfg.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		opts.Cache = a.StorageApp.Storage()
	}

	a.Client = api.New(log, opts)

	log.Debug("API client initialised",
		slog.String("base_url", cfg.API.BaseURL),
		slog.String("contract", contract.Name()),
		slog.Bool("cache", cfg.Cache.Enabled),
	)

	return a, nil
}

func (a *App) Config() *config.Config { return a.cfg }

// NewController builds a page controller on top of client, which may be a
// notifier-scoped copy of a.Client.
func (a *App) NewController(client *api.Client) *controller.Controller {
	return controller.New(a.log, client, a.cfg.Search.PageSize)
}

func (a *App) NewForm(onSearch form.OnSearch) *form.Form {
	return form.New(form.Config{
		RequireText:     a.cfg.Search.RequireText,
		AutoSubmitDelay: a.cfg.Search.AutoSubmitDelay,
	}, onSearch)
}

// NewRecognizer returns nil when no speech command is configured; callers
// treat that as voice search being unsupported.
func (a *App) NewRecognizer() (voice.Recognizer, error) {
	if len(a.cfg.Voice.Command) == 0 {
		return nil, nil
	}
	cmd, err := voice.NewCommand(a.cfg.Voice.Command, a.cfg.Voice.Locale)
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

func (a *App) Stop() error {
	a.Metrics.PrintMetrics(a.log)
	if a.StorageApp == nil {
		return nil
	}
	return a.StorageApp.Stop()
}

// Paths merges configured overrides over the contract defaults.
func Paths(cfg *config.Config) api.Paths {
	p := api.DefaultPaths()
	if cfg.API.Contract == api.ContractLegacy {
		p = api.LegacyPaths()
	}

	o := cfg.API.Paths
	if o.List != "" {
		p.List = o.List
	}
	if o.Search != "" {
		p.Search = o.Search
	}
	if o.DateRange != "" {
		p.DateRange = o.DateRange
	}
	if o.Case != "" {
		p.Case = o.Case
	}
	if o.Statistics != "" {
		p.Statistics = o.Statistics
	}
	return p
}

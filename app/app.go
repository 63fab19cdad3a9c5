// Package app assembles the shop manager: storage, the token codec, the
// storefront fleet and the operator bot, on top of the shared core runtime.
package app

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/m3rciful/shopbot/bot/operator"
	"github.com/m3rciful/shopbot/bot/storefront"
	corebootstrap "github.com/m3rciful/shopbot/core/bootstrap"
	"github.com/m3rciful/shopbot/core/logger"
	coretelegram "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/router"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/fleet"
	"github.com/m3rciful/shopbot/secrets"
	adminssvc "github.com/m3rciful/shopbot/service/admins"
	"github.com/m3rciful/shopbot/service/allocator"
	catalogsvc "github.com/m3rciful/shopbot/service/catalog"
	shopssvc "github.com/m3rciful/shopbot/service/shops"
	suggestsvc "github.com/m3rciful/shopbot/service/suggest"
	"github.com/m3rciful/shopbot/store"
)

// App is the fully wired shop manager.
type App struct {
	cfg      *Config
	fleet    *fleet.Manager
	sessions state.Manager
	handlers *operator.Handlers
}

// Bootstrap initializes infrastructure and wires every component.
func Bootstrap(cfg *Config) (*App, error) {
	boot, err := corebootstrap.Run(corebootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	stores := store.New(boot.DB)

	codec, err := secrets.NewCodec(cfg.Secrets.Key, cfg.Secrets.IV)
	if err != nil {
		return nil, fmt.Errorf("app: token codec: %w", err)
	}

	catalogService := catalogsvc.New(stores.Categories, stores.Products, stores.Inventory)
	buyAllocator := allocator.New(stores.Inventory, stores.Purchases)

	factory := storefront.NewFactory(storefront.FactoryOptions{
		Shops:                  stores.Shops,
		Creds:                  codec,
		Catalog:                catalogService,
		Allocator:              buyAllocator,
		Purchases:              stores.Purchases,
		LongPollTimeoutSeconds: cfg.Core.Telegram.LongPollTimeoutSeconds,
	})

	shopFleet := fleet.NewManager(factory, codec, stores.Shops)
	shopService := shopssvc.New(stores.Shops, codec, shopFleet)
	adminService := adminssvc.New(stores.Admins, stores.Shops)

	var suggestClient *suggestsvc.Client
	if cfg.Suggest.Enabled() {
		suggestClient = suggestsvc.New(cfg.Suggest, nil)
	}

	sessions := state.NewMemoryManager()
	handlers := operator.New(sessions, stores.Users, shopService, catalogService, adminService, suggestClient, shopFleet)

	return &App{
		cfg:      cfg,
		fleet:    shopFleet,
		sessions: sessions,
		handlers: handlers,
	}, nil
}

// TelegramRunOptions wires the operator bot's routes and the fleet
// lifecycle into the shared runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.handlers.Register(reg)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		NotFound: a.handlers.UnknownCallback(),
	}))
	routes = append(routes, router.TextRoutes(a.sessions, reg, router.TextOptions{
		UnknownText:     a.handlers.UnknownText(),
		UnknownDocument: a.handlers.UnknownDocument(),
	})...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,

		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			if err := a.fleet.ReconcileOnStartup(ctx); err != nil {
				return err
			}
			for digest, err := range a.fleet.Degraded() {
				logger.Warn(ctx, "app", "fleet.degraded",
					slog.String("digest", logger.SanitizeLimit(digest, 16)),
					slog.String("err", err.Error()),
				)
			}
			return nil
		},
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			a.fleet.StopAll()
			return nil
		},
	}, nil
}

// Fleet exposes the storefront fleet, e.g. for diagnostics.
func (a *App) Fleet() *fleet.Manager { return a.fleet }

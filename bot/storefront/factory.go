// Package storefront builds the buyer-facing bot of a single shop. One
// instance runs per active shop; the fleet creates and owns them through
// the Factory.
package storefront

import (
	"context"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	coretelegram "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/router"
	"github.com/m3rciful/shopbot/domain"
	"github.com/m3rciful/shopbot/fleet"
)

// ShopResolver finds the shop a bot token belongs to.
type ShopResolver interface {
	GetByDigest(ctx context.Context, digest string) (domain.Shop, error)
}

// Credentials digests tokens the same way the shop store does.
type Credentials interface {
	Digest(token string) (string, error)
}

// FactoryOptions carries the dependencies shared by every storefront bot.
type FactoryOptions struct {
	Shops     ShopResolver
	Creds     Credentials
	Catalog   Catalog
	Allocator Allocator
	Purchases PurchaseLister

	// LongPollTimeoutSeconds applies to every storefront poller; 0 uses
	// the telebot default.
	LongPollTimeoutSeconds int
}

// Factory builds storefront runtimes for the fleet.
type Factory struct {
	opts FactoryOptions
}

// NewFactory constructs a Factory.
func NewFactory(opts FactoryOptions) *Factory {
	return &Factory{opts: opts}
}

// Create resolves the shop behind the token and assembles its bot. Token
// validity is checked here: telebot calls getMe during construction, so a
// revoked token fails fast instead of producing a dead runtime.
func (f *Factory) Create(token string) (fleet.Runtime, error) {
	digest, err := f.opts.Creds.Digest(token)
	if err != nil {
		return nil, err
	}
	shop, err := f.opts.Shops.GetByDigest(context.Background(), digest)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(f.opts.LongPollTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: timeout},
		Client: coretelegram.BuildHTTPClient(),
	})
	if err != nil {
		return nil, err
	}

	h := newHandlers(shop.ID, f.opts.Catalog, f.opts.Allocator, f.opts.Purchases)
	reg := coretelegram.NewRegistry()
	h.register(reg)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(nil, reg, router.TextOptions{})...)
	for _, route := range routes {
		bot.Handle(route.Endpoint, route.Handler)
	}

	return &runtime{bot: bot}, nil
}

// runtime adapts a telebot instance to the fleet lifecycle. Start returns
// immediately; polling happens on its own goroutine until Stop.
type runtime struct {
	bot *tele.Bot

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func (r *runtime) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.done = make(chan struct{})
	go func(done chan struct{}) {
		r.bot.Start()
		close(done)
	}(r.done)
}

func (r *runtime) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	done := r.done
	r.mu.Unlock()

	r.bot.Stop()
	<-done
}

func (r *runtime) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *runtime) Identity(context.Context) (domain.BotIdentity, error) {
	me := r.bot.Me
	if me == nil {
		return domain.BotIdentity{}, domain.ErrNotRunning
	}
	return domain.BotIdentity{DisplayName: me.FirstName, Handle: me.Username}, nil
}

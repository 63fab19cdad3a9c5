// Package fleet tracks, starts and stops the storefront bot of every
// managed shop. The in-memory registry is the single source of truth for
// which bots are live; the persisted active flag only survives restarts and
// is reconciled against the registry on startup.
package fleet

import (
	"context"
	"sync"

	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/domain"
)

// Runtime is one live storefront bot process.
type Runtime interface {
	Start()
	Stop()
	IsRunning() bool
	Identity(ctx context.Context) (domain.BotIdentity, error)
}

// Factory builds a Runtime from a plaintext bot token.
type Factory interface {
	Create(token string) (Runtime, error)
}

// Credentials converts between plaintext tokens and their stored digests.
type Credentials interface {
	Digest(token string) (string, error)
	Reveal(digest string) (string, error)
}

// ShopFlags persists the restart hint for shops.
type ShopFlags interface {
	SetActiveByDigest(ctx context.Context, digest string, active bool) error
	ListActive(ctx context.Context) ([]domain.Shop, error)
}

const defaultReconcileParallelism = 4

// Manager owns the registry of live storefront bots keyed by token digest.
// Operations on distinct digests never block each other; operations on the
// same digest are serialized through the entry's own lock.
type Manager struct {
	factory Factory
	creds   Credentials
	flags   ShopFlags

	mu      sync.RWMutex
	entries map[string]*entry

	degradedMu sync.Mutex
	degraded   map[string]error
}

type entry struct {
	mu      sync.Mutex
	rt      Runtime
	started bool
}

// NewManager constructs an empty fleet.
func NewManager(factory Factory, creds Credentials, flags ShopFlags) *Manager {
	return &Manager{
		factory:  factory,
		creds:    creds,
		flags:    flags,
		entries:  make(map[string]*entry),
		degraded: make(map[string]error),
	}
}

// Start launches the storefront bot for a token. The registry entry is
// claimed before the runtime exists, so a concurrent Start for the same
// token observes ErrAlreadyRunning instead of racing to double-insert. The
// registry is updated before the persisted flag: a crash mid-operation
// leaves the flag at worst wrongly active, never a live untracked process.
func (m *Manager) Start(ctx context.Context, token string) error {
	digest, err := m.creds.Digest(token)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if _, ok := m.entries[digest]; ok {
		m.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	e := &entry{}
	e.mu.Lock()
	m.entries[digest] = e
	m.mu.Unlock()

	rt, err := m.factory.Create(token)
	if err != nil {
		e.mu.Unlock()
		m.remove(digest)
		logger.Error(ctx, "fleet", "start.fail",
			slog.String("digest", logger.SanitizeLimit(digest, 16)),
			slog.String("err", err.Error()),
		)
		return err
	}
	rt.Start()
	e.rt = rt
	e.started = true
	e.mu.Unlock()

	if err := m.flags.SetActiveByDigest(ctx, digest, true); err != nil {
		// The bot is live and tracked; a stale flag is repaired by the
		// next reconciliation pass.
		logger.Warn(ctx, "fleet", "start.flag_unsynced",
			slog.String("digest", logger.SanitizeLimit(digest, 16)),
			slog.String("err", err.Error()),
		)
	}
	m.clearDegraded(digest)

	logger.Info(ctx, "fleet", "start.ok",
		slog.String("digest", logger.SanitizeLimit(digest, 16)),
		slog.Int("running", m.Size()),
	)
	return nil
}

// Stop shuts the storefront bot for a token down. A second Stop in a row
// yields ErrNotRunning, never a panic.
func (m *Manager) Stop(ctx context.Context, token string) error {
	digest, err := m.creds.Digest(token)
	if err != nil {
		return err
	}
	return m.StopByDigest(ctx, digest)
}

// StopByDigest is Stop keyed by the stored digest.
func (m *Manager) StopByDigest(ctx context.Context, digest string) error {
	m.mu.Lock()
	e, ok := m.entries[digest]
	m.mu.Unlock()
	if !ok {
		return domain.ErrNotRunning
	}

	// Waits for an in-flight Start on the same digest to settle.
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return domain.ErrNotRunning
	}
	e.rt.Stop()
	e.started = false
	m.remove(digest)

	if err := m.flags.SetActiveByDigest(ctx, digest, false); err != nil {
		logger.Warn(ctx, "fleet", "stop.flag_unsynced",
			slog.String("digest", logger.SanitizeLimit(digest, 16)),
			slog.String("err", err.Error()),
		)
	}

	logger.Info(ctx, "fleet", "stop.ok",
		slog.String("digest", logger.SanitizeLimit(digest, 16)),
		slog.Int("running", m.Size()),
	)
	return nil
}

// IsRunning reports whether the bot for a token is live. Unknown tokens
// return false, not an error.
func (m *Manager) IsRunning(token string) bool {
	digest, err := m.creds.Digest(token)
	if err != nil {
		return false
	}
	return m.IsRunningDigest(digest)
}

// IsRunningDigest is IsRunning keyed by the stored digest.
func (m *Manager) IsRunningDigest(digest string) bool {
	m.mu.RLock()
	e, ok := m.entries[digest]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// Size returns the number of registry entries.
func (m *Manager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Identity queries the chat-platform identity of a running bot.
func (m *Manager) Identity(ctx context.Context, digest string) (domain.BotIdentity, error) {
	m.mu.RLock()
	e, ok := m.entries[digest]
	m.mu.RUnlock()
	if !ok {
		return domain.BotIdentity{}, domain.ErrNotRunning
	}
	e.mu.Lock()
	rt, started := e.rt, e.started
	e.mu.Unlock()
	if !started {
		return domain.BotIdentity{}, domain.ErrNotRunning
	}
	return rt.Identity(ctx)
}

// Degraded lists digests whose last reconcile attempt failed.
func (m *Manager) Degraded() map[string]error {
	m.degradedMu.Lock()
	defer m.degradedMu.Unlock()
	out := make(map[string]error, len(m.degraded))
	for k, v := range m.degraded {
		out[k] = v
	}
	return out
}

// ReconcileOnStartup starts every shop whose persisted flag claims it was
// active. The pass is total-attempt: one invalid credential is recorded as
// degraded and skipped, never fatal to the batch. A degraded shop's flag is
// cleared so the next restart does not blindly retry it.
func (m *Manager) ReconcileOnStartup(ctx context.Context) error {
	shops, err := m.flags.ListActive(ctx)
	if err != nil {
		return domain.WrapTransient("fleet.reconcile", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultReconcileParallelism)
	for _, shop := range shops {
		g.Go(func() error {
			if err := m.reconcileOne(gctx, shop); err != nil {
				m.markDegraded(shop.TokenDigest, err)
				if flagErr := m.flags.SetActiveByDigest(gctx, shop.TokenDigest, false); flagErr != nil {
					logger.Warn(gctx, "fleet", "reconcile.flag_unsynced",
						slog.Int64("shop_id", shop.ID),
						slog.String("err", flagErr.Error()),
					)
				}
				logger.Error(gctx, "fleet", "reconcile.degraded",
					slog.Int64("shop_id", shop.ID),
					slog.String("digest", logger.SanitizeLimit(shop.TokenDigest, 16)),
					slog.String("err", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info(ctx, "fleet", "reconcile.done",
		slog.Int("running", m.Size()),
		slog.Int("degraded", len(m.Degraded())),
	)
	return nil
}

func (m *Manager) reconcileOne(ctx context.Context, shop domain.Shop) error {
	token, err := m.creds.Reveal(shop.TokenDigest)
	if err != nil {
		return err
	}
	return m.Start(ctx, token)
}

// StopAll shuts every live bot down, e.g. on process shutdown. The
// persisted flags stay untouched so the next start reconciles the fleet
// back to its previous shape.
func (m *Manager) StopAll() {
	m.mu.Lock()
	entries := make(map[string]*entry, len(m.entries))
	for k, v := range m.entries {
		entries[k] = v
	}
	m.entries = make(map[string]*entry)
	m.mu.Unlock()

	for digest, e := range entries {
		e.mu.Lock()
		if e.started {
			e.rt.Stop()
			e.started = false
		}
		e.mu.Unlock()
		logger.Debug(context.Background(), "fleet", "shutdown.stop",
			slog.String("digest", logger.SanitizeLimit(digest, 16)),
		)
	}
}

func (m *Manager) remove(digest string) {
	m.mu.Lock()
	delete(m.entries, digest)
	m.mu.Unlock()
}

func (m *Manager) markDegraded(digest string, err error) {
	m.degradedMu.Lock()
	m.degraded[digest] = err
	m.degradedMu.Unlock()
}

func (m *Manager) clearDegraded(digest string) {
	m.degradedMu.Lock()
	delete(m.degraded, digest)
	m.degradedMu.Unlock()
}

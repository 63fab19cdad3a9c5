package fleet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/domain"
)

type fakeRuntime struct {
	mu      sync.Mutex
	running bool
	starts  int
	stops   int
}

func (r *fakeRuntime) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = true
	r.starts++
}

func (r *fakeRuntime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.stops++
}

func (r *fakeRuntime) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *fakeRuntime) Identity(context.Context) (domain.BotIdentity, error) {
	return domain.BotIdentity{DisplayName: "Test Shop", Handle: "test_shop_bot"}, nil
}

type fakeFactory struct {
	mu       sync.Mutex
	failFor  map[string]error
	runtimes map[string]*fakeRuntime
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		failFor:  make(map[string]error),
		runtimes: make(map[string]*fakeRuntime),
	}
}

func (f *fakeFactory) Create(token string) (Runtime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[token]; ok {
		return nil, err
	}
	rt := &fakeRuntime{}
	f.runtimes[token] = rt
	return rt, nil
}

// plainCreds uses a reversible marker transform so tests can assert on
// digests without real crypto.
type plainCreds struct{}

func (plainCreds) Digest(token string) (string, error) { return "d:" + token, nil }

func (plainCreds) Reveal(digest string) (string, error) {
	if len(digest) < 2 || digest[:2] != "d:" {
		return "", errors.New("bad digest")
	}
	return digest[2:], nil
}

type fakeFlags struct {
	mu     sync.Mutex
	active map[string]bool
	fail   bool
}

func newFakeFlags() *fakeFlags { return &fakeFlags{active: make(map[string]bool)} }

func (f *fakeFlags) SetActiveByDigest(_ context.Context, digest string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("db down")
	}
	f.active[digest] = active
	return nil
}

func (f *fakeFlags) ListActive(context.Context) ([]domain.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Shop
	id := int64(0)
	for digest, active := range f.active {
		id++
		if active {
			out = append(out, domain.Shop{ID: id, TokenDigest: digest, Active: true})
		}
	}
	return out, nil
}

func (f *fakeFlags) isActive(digest string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active[digest]
}

func newTestManager(t *testing.T) (*Manager, *fakeFactory, *fakeFlags) {
	t.Helper()
	factory := newFakeFactory()
	flags := newFakeFlags()
	return NewManager(factory, plainCreds{}, flags), factory, flags
}

func TestStartStopLifecycle(t *testing.T) {
	m, factory, flags := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, "token-a"))
	assert.True(t, m.IsRunning("token-a"))
	assert.True(t, flags.isActive("d:token-a"))
	assert.True(t, factory.runtimes["token-a"].IsRunning())

	require.NoError(t, m.Stop(ctx, "token-a"))
	assert.False(t, m.IsRunning("token-a"))
	assert.False(t, flags.isActive("d:token-a"))
	assert.False(t, factory.runtimes["token-a"].IsRunning())
}

func TestStartTwiceYieldsAlreadyRunning(t *testing.T) {
	m, factory, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, "token-a"))
	err := m.Start(ctx, "token-a")
	assert.ErrorIs(t, err, domain.ErrAlreadyRunning)
	assert.Equal(t, 1, m.Size())
	assert.Equal(t, 1, factory.runtimes["token-a"].starts)
}

func TestStopWithoutStartYieldsNotRunning(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	err := m.Stop(ctx, "never-started")
	assert.ErrorIs(t, err, domain.ErrNotRunning)

	require.NoError(t, m.Start(ctx, "token-a"))
	require.NoError(t, m.Stop(ctx, "token-a"))
	assert.ErrorIs(t, m.Stop(ctx, "token-a"), domain.ErrNotRunning)
}

func TestIsRunningUnknownCredential(t *testing.T) {
	m, _, _ := newTestManager(t)
	assert.False(t, m.IsRunning("unknown"))
}

func TestFactoryFailureLeavesNoEntry(t *testing.T) {
	m, factory, flags := newTestManager(t)
	factory.failFor["bad-token"] = errors.New("unauthorized")

	err := m.Start(context.Background(), "bad-token")
	assert.Error(t, err)
	assert.False(t, m.IsRunning("bad-token"))
	assert.Equal(t, 0, m.Size())
	assert.False(t, flags.isActive("d:bad-token"))
}

func TestConcurrentStartSameCredential(t *testing.T) {
	m, factory, _ := newTestManager(t)
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Start(ctx, "token-a")
		}(i)
	}
	wg.Wait()

	okCount := 0
	for _, err := range errs {
		if err == nil {
			okCount++
		} else {
			assert.ErrorIs(t, err, domain.ErrAlreadyRunning)
		}
	}
	assert.Equal(t, 1, okCount, "exactly one start succeeds")
	assert.Equal(t, 1, m.Size())
	assert.Equal(t, 1, factory.runtimes["token-a"].starts)
}

func TestConcurrentStartStopDistinctCredentials(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	tokens := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, token := range tokens {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			require.NoError(t, m.Start(ctx, token))
			require.NoError(t, m.Stop(ctx, token))
			require.NoError(t, m.Start(ctx, token))
		}(token)
	}
	wg.Wait()

	assert.Equal(t, len(tokens), m.Size())
	for _, token := range tokens {
		assert.True(t, m.IsRunning(token))
	}
}

func TestReconcileOnStartupIsTotalAttempt(t *testing.T) {
	m, factory, flags := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, flags.SetActiveByDigest(ctx, "d:good-1", true))
	require.NoError(t, flags.SetActiveByDigest(ctx, "d:revoked", true))
	require.NoError(t, flags.SetActiveByDigest(ctx, "d:good-2", true))
	factory.failFor["revoked"] = errors.New("401 unauthorized")

	require.NoError(t, m.ReconcileOnStartup(ctx))

	assert.True(t, m.IsRunning("good-1"))
	assert.True(t, m.IsRunning("good-2"))
	assert.False(t, m.IsRunning("revoked"))

	degraded := m.Degraded()
	require.Len(t, degraded, 1)
	assert.Contains(t, degraded, "d:revoked")
	// Degraded flag cleared so the next restart does not retry blindly.
	assert.False(t, flags.isActive("d:revoked"))
}

func TestStartClearsDegraded(t *testing.T) {
	m, factory, flags := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, flags.SetActiveByDigest(ctx, "d:flaky", true))
	factory.failFor["flaky"] = errors.New("network")
	require.NoError(t, m.ReconcileOnStartup(ctx))
	require.Contains(t, m.Degraded(), "d:flaky")

	factory.mu.Lock()
	delete(factory.failFor, "flaky")
	factory.mu.Unlock()

	require.NoError(t, m.Start(ctx, "flaky"))
	assert.NotContains(t, m.Degraded(), "d:flaky")
}

func TestStopAllKeepsFlags(t *testing.T) {
	m, _, flags := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, "token-a"))
	require.NoError(t, m.Start(ctx, "token-b"))

	m.StopAll()
	assert.Equal(t, 0, m.Size())
	assert.False(t, m.IsRunning("token-a"))
	// Flags survive shutdown so reconciliation restores the fleet shape.
	assert.True(t, flags.isActive("d:token-a"))
	assert.True(t, flags.isActive("d:token-b"))
}

func TestIdentityOfRunningBot(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Identity(ctx, "d:token-a")
	assert.ErrorIs(t, err, domain.ErrNotRunning)

	require.NoError(t, m.Start(ctx, "token-a"))
	id, err := m.Identity(ctx, "d:token-a")
	require.NoError(t, err)
	assert.Equal(t, "test_shop_bot", id.Handle)
}

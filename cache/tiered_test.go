package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/querycache/secret"
)

// fakeRemote is an in-process RemoteStore for tests. Setting fail makes
// every call return a connectivity error.
type fakeRemote struct {
	mu     sync.Mutex
	data   map[string][]byte
	fail   bool
	closed bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: make(map[string][]byte)}
}

func (f *fakeRemote) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeRemote) put(key string, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
}

func (f *fakeRemote) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

func (f *fakeRemote) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, false, ErrRemoteUnavailable
	}
	val, ok := f.data[key]
	return val, ok, nil
}

func (f *fakeRemote) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return ErrRemoteUnavailable
	}
	f.data[key] = value
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return ErrRemoteUnavailable
	}
	delete(f.data, key)
	return nil
}

func (f *fakeRemote) Keys(_ context.Context, pattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, ErrRemoteUnavailable
	}
	needle := strings.Trim(pattern, "*")
	var keys []string
	for key := range f.data {
		if strings.Contains(key, needle) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *fakeRemote) Flush(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return ErrRemoteUnavailable
	}
	f.data = make(map[string][]byte)
	return nil
}

func (f *fakeRemote) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return ErrRemoteUnavailable
	}
	return nil
}

func (f *fakeRemote) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestTiered(t *testing.T, opts ...Option) *TieredCache {
	t.Helper()
	c, err := New(DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestTieredMemoryOnly(t *testing.T) {
	ctx := context.Background()
	c := newTestTiered(t)

	if err := c.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := c.Get(ctx, "k1")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != `"v1"` {
		t.Errorf("expected serialized v1, got %s", got)
	}
	if c.RemoteConfigured() {
		t.Error("expected no remote tier")
	}
	if !c.RemoteHealthy(ctx) {
		t.Error("expected healthy without remote tier")
	}
}

func TestTieredRemoteHitWins(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.put("k1", []byte(`"remote-value"`))
	c := newTestTiered(t, WithRemoteStore(remote))

	got, ok := c.Get(ctx, "k1")
	if !ok {
		t.Fatal("expected remote hit")
	}
	if string(got) != `"remote-value"` {
		t.Errorf("expected remote value, got %s", got)
	}
	if hits := c.Stats().Hits; hits != 1 {
		t.Errorf("expected 1 hit, got %d", hits)
	}
}

func TestTieredRemoteMissFallsToMemory(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	c := newTestTiered(t, WithRemoteStore(remote))

	if err := c.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// Remove the remote copy so only memory can answer.
	if err := remote.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, ok := c.Get(ctx, "k1")
	if !ok {
		t.Fatal("expected memory hit after remote miss")
	}
	if string(got) != `"v1"` {
		t.Errorf("unexpected value %s", got)
	}
}

func TestTieredFailOpen(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	c := newTestTiered(t, WithRemoteStore(remote))

	if err := c.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	remote.setFail(true)

	got, ok := c.Get(ctx, "k1")
	if !ok {
		t.Fatal("expected memory tier to answer while remote is down")
	}
	if string(got) != `"v1"` {
		t.Errorf("unexpected value %s", got)
	}

	// Writes stay non-fatal while the remote is down.
	if err := c.Set(ctx, "k2", "v2", 0); err != nil {
		t.Errorf("Set surfaced a remote failure: %v", err)
	}
	if _, ok := c.Get(ctx, "k2"); !ok {
		t.Error("expected memory hit for entry written during outage")
	}
}

func TestTieredSetWritesBothTiers(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	c := newTestTiered(t, WithRemoteStore(remote))

	if err := c.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !remote.has("k1") {
		t.Error("expected write-through to the remote tier")
	}
}

func TestTieredSetSerializationError(t *testing.T) {
	ctx := context.Background()
	c := newTestTiered(t)

	err := c.Set(ctx, "k1", make(chan int), 0)
	if !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
	if _, ok := c.Get(ctx, "k1"); ok {
		t.Error("expected nothing stored after serialization failure")
	}
}

func TestTieredSetInvalidKey(t *testing.T) {
	ctx := context.Background()
	c := newTestTiered(t)

	if err := c.Set(ctx, "", "v", 0); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
	if err := c.Set(ctx, "bad\nkey", "v", 0); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestTieredDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false
	remote := newFakeRemote()
	remote.put("k1", []byte(`"v"`))

	c, err := New(cfg, WithRemoteStore(remote))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.Set(ctx, "k1", "other", 0); err != nil {
		t.Errorf("Set on disabled cache: %v", err)
	}
	if _, ok := c.Get(ctx, "k1"); ok {
		t.Error("expected miss from disabled cache")
	}
}

func TestTieredDelete(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	c := newTestTiered(t, WithRemoteStore(remote))

	if err := c.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !c.Delete(ctx, "k1") {
		t.Error("expected Delete to report removal")
	}
	if remote.has("k1") {
		t.Error("expected remote copy removed")
	}
	if _, ok := c.Get(ctx, "k1"); ok {
		t.Error("expected miss after delete")
	}
}

func TestTieredClear(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	c := newTestTiered(t, WithRemoteStore(remote))

	if err := c.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c.Clear(ctx)

	if remote.has("k1") {
		t.Error("expected remote tier flushed")
	}
	stats := c.Stats()
	if stats.Size != 0 || stats.Hits != 0 {
		t.Errorf("expected empty stats after Clear, got %+v", stats)
	}
}

func TestTieredInvalidateByPattern(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	c := newTestTiered(t, WithRemoteStore(remote))

	mustSet := func(key string) {
		t.Helper()
		if err := c.Set(ctx, key, "v", 0); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
	}
	mustSet("user:1:profile")
	mustSet("user:1:orders")
	mustSet("user:2:profile")
	// Present only remotely, still matched by the pattern.
	remote.put("user:1:sessions", []byte(`"v"`))

	count := c.InvalidateByPattern(ctx, "user:1")
	if count != 3 {
		t.Errorf("expected 3 distinct keys invalidated, got %d", count)
	}
	if remote.has("user:1:sessions") || remote.has("user:1:profile") {
		t.Error("expected remote keys removed")
	}
	if _, ok := c.Get(ctx, "user:2:profile"); !ok {
		t.Error("expected unrelated key to survive")
	}
}

func TestTieredInvalidateByPatternRemoteDown(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	c := newTestTiered(t, WithRemoteStore(remote))

	if err := c.Set(ctx, "user:1:profile", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	remote.setFail(true)

	// The memory-side removals still count when the remote scan fails.
	if count := c.InvalidateByPattern(ctx, "user:1"); count != 1 {
		t.Errorf("expected 1, got %d", count)
	}
}

func TestTieredScopedInvalidation(t *testing.T) {
	ctx := context.Background()
	c := newTestTiered(t)

	for _, key := range []string{"user:7:a", "user:7:b", "type:Order:list", "other"} {
		if err := c.Set(ctx, key, "v", 0); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
	}

	if count := c.InvalidateUser(ctx, "7"); count != 2 {
		t.Errorf("InvalidateUser: expected 2, got %d", count)
	}
	if count := c.InvalidateType(ctx, "Order"); count != 1 {
		t.Errorf("InvalidateType: expected 1, got %d", count)
	}
	if _, ok := c.Get(ctx, "other"); !ok {
		t.Error("expected unscoped key to survive")
	}
}

func TestTieredRemoteHealthy(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	c := newTestTiered(t, WithRemoteStore(remote))

	if !c.RemoteConfigured() {
		t.Fatal("expected remote to be configured")
	}
	if !c.RemoteHealthy(ctx) {
		t.Error("expected healthy remote")
	}

	remote.setFail(true)
	if c.RemoteHealthy(ctx) {
		t.Error("expected unhealthy remote while failing")
	}
}

func TestTieredClose(t *testing.T) {
	remote := newFakeRemote()
	c := newTestTiered(t, WithRemoteStore(remote))

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !remote.closed {
		t.Error("expected remote store closed")
	}
}

func TestTieredRemotePasswordResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote = &RemoteConfig{Host: "localhost", Port: 6379, Password: "${QC_TEST_REDIS_PASSWORD}"}

	if _, err := New(cfg); err == nil {
		t.Error("expected error for unresolvable password placeholder")
	}

	t.Setenv("QC_TEST_REDIS_PASSWORD", "s3cret")
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if !c.RemoteConfigured() {
		t.Error("expected remote tier configured")
	}
}

func TestTieredRemotePasswordSecretRef(t *testing.T) {
	t.Setenv("QC_TEST_REDIS_PASSWORD", "s3cret")

	cfg := DefaultConfig()
	cfg.Remote = &RemoteConfig{Host: "localhost", Port: 6379, Password: "secretref:env:QC_TEST_REDIS_PASSWORD"}

	c, err := New(cfg, WithSecretResolver(secret.NewResolver(true, secret.NewEnvProvider())))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
}

func TestTieredWarmup(t *testing.T) {
	ctx := context.Background()
	c := newTestTiered(t)

	entries := []WarmupEntry{
		{Key: "warm:1", Loader: func(context.Context) (any, error) { return "one", nil }},
		{Key: "warm:2", Loader: func(context.Context) (any, error) { return "two", nil }},
		{Key: "warm:bad", Loader: func(context.Context) (any, error) { return nil, errors.New("upstream down") }},
		{Key: "warm:nil"},
	}

	loaded := c.Warmup(ctx, entries)
	if loaded != 2 {
		t.Errorf("expected 2 loaded, got %d", loaded)
	}
	if _, ok := c.Get(ctx, "warm:1"); !ok {
		t.Error("expected warm:1 cached")
	}
	if _, ok := c.Get(ctx, "warm:2"); !ok {
		t.Error("expected warm:2 cached")
	}
	if _, ok := c.Get(ctx, "warm:bad"); ok {
		t.Error("expected failed loader to cache nothing")
	}
}

func TestTieredWarmupManyEntries(t *testing.T) {
	ctx := context.Background()
	c := newTestTiered(t)

	entries := make([]WarmupEntry, 40)
	for i := range entries {
		key := string(rune('a'+i%26)) + ":warm"
		entries[i] = WarmupEntry{
			Key:    key,
			Loader: func(context.Context) (any, error) { return "v", nil },
		}
	}

	if loaded := c.Warmup(ctx, entries); loaded != 40 {
		t.Errorf("expected all 40 loads to succeed, got %d", loaded)
	}
}

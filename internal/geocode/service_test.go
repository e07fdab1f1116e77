package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ice-news-geomap/internal/cache"
	"github.com/couchcryptid/ice-news-geomap/internal/domain"
	"github.com/couchcryptid/ice-news-geomap/internal/gazetteer"
	"github.com/couchcryptid/ice-news-geomap/internal/observability"
)

// mockGeocoder records calls and returns canned results.
type mockGeocoder struct {
	mu      sync.Mutex
	calls   int
	queries []string
	result  domain.GeocodingResult
	errs    []error // consumed one per call; nil once exhausted
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, query string) (domain.GeocodingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.queries = append(m.queries, query)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return domain.GeocodingResult{}, err
		}
	}
	return m.result, nil
}

func (m *mockGeocoder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.MinInterval = 0
	opts.InitialBackoff = time.Millisecond
	return opts
}

func newTestService(t *testing.T, provider domain.Geocoder, clock clockwork.Clock) (*Service, *cache.Store) {
	t.Helper()
	g, err := gazetteer.Default()
	require.NoError(t, err)
	store := cache.NewStore(0, clock)
	svc := NewService(provider, g, store, 24*time.Hour, testOptions(), observability.NewMetricsForTesting(), discardLogger())
	return svc, store
}

func libertyResult() domain.GeocodingResult {
	return domain.GeocodingResult{
		Found:            true,
		Lat:              39.2461,
		Lon:              -94.4208,
		FormattedAddress: "Liberty, Clay County, Missouri, United States",
		PlaceName:        "Liberty",
	}
}

func TestLocate_LibertyResolvesAndCaches(t *testing.T) {
	provider := &mockGeocoder{result: libertyResult()}
	svc, store := newTestService(t, provider, clockwork.NewFakeClock())

	got := svc.Locate(context.Background(), "liberty")

	assert.Equal(t, domain.Coordinate{Lat: 39.2461, Lon: -94.4208}, got.Coordinate)
	assert.Equal(t, domain.GeocodeResolved, got.Status)
	assert.Equal(t, "Liberty, MO, United States", got.Query)
	assert.True(t, store.Contains("geocode_liberty"))

	again := svc.Locate(context.Background(), "liberty")
	assert.Equal(t, got, again)
	assert.Equal(t, 1, provider.callCount())
}

func TestLocate_KeyIgnoresCaseAndSpace(t *testing.T) {
	provider := &mockGeocoder{result: libertyResult()}
	svc, store := newTestService(t, provider, clockwork.NewFakeClock())

	svc.Locate(context.Background(), "  Liberty ")
	svc.Locate(context.Background(), "LIBERTY")

	assert.True(t, store.Contains("geocode_liberty"))
	assert.Equal(t, 1, provider.callCount())
}

func TestLocate_NotFoundUsesFallbackAndCaches(t *testing.T) {
	provider := &mockGeocoder{}
	svc, _ := newTestService(t, provider, clockwork.NewFakeClock())

	got := svc.Locate(context.Background(), "nowhere")
	svc.Locate(context.Background(), "nowhere")

	assert.Equal(t, DefaultFallback, got.Coordinate)
	assert.Equal(t, domain.GeocodeNotFound, got.Status)
	assert.Equal(t, 1, provider.callCount())
}

func TestLocate_HitWithoutAddressResolves(t *testing.T) {
	provider := &mockGeocoder{result: domain.GeocodingResult{Found: true, Lat: 29.7604, Lon: -95.3698}}
	svc, _ := newTestService(t, provider, clockwork.NewFakeClock())

	got := svc.Locate(context.Background(), "houston")

	assert.Equal(t, domain.GeocodeResolved, got.Status)
	assert.Equal(t, domain.Coordinate{Lat: 29.7604, Lon: -95.3698}, got.Coordinate)
	assert.Empty(t, got.Address)
}

func TestLocate_AddressWithoutHitIsNotFound(t *testing.T) {
	provider := &mockGeocoder{result: domain.GeocodingResult{FormattedAddress: "Somewhere"}}
	svc, _ := newTestService(t, provider, clockwork.NewFakeClock())

	got := svc.Locate(context.Background(), "somewhere")

	assert.Equal(t, domain.GeocodeNotFound, got.Status)
	assert.Equal(t, DefaultFallback, got.Coordinate)
}

func TestLocate_ProviderErrorAfterRetries(t *testing.T) {
	boom := errors.New("connection reset")
	provider := &mockGeocoder{errs: []error{boom, boom, boom, boom, boom}}
	svc, store := newTestService(t, provider, clockwork.NewFakeClock())

	got := svc.Locate(context.Background(), "houston")

	assert.Equal(t, DefaultFallback, got.Coordinate)
	assert.Equal(t, domain.GeocodeTransientError, got.Status)
	assert.Equal(t, 4, provider.callCount(), "one call plus three retries")
	assert.True(t, store.Contains("geocode_houston"), "failures are cached too")
}

func TestLocate_RetrySucceeds(t *testing.T) {
	provider := &mockGeocoder{
		errs:   []error{errors.New("503"), nil},
		result: domain.GeocodingResult{Found: true, Lat: 29.76, Lon: -95.37, FormattedAddress: "Houston, Texas"},
	}
	svc, _ := newTestService(t, provider, clockwork.NewFakeClock())

	got := svc.Locate(context.Background(), "houston")

	assert.Equal(t, domain.GeocodeResolved, got.Status)
	assert.Equal(t, "Houston, Texas", got.Address)
	assert.Equal(t, 2, provider.callCount())
}

func TestLocate_ExpiredEntryRefetches(t *testing.T) {
	clock := clockwork.NewFakeClock()
	provider := &mockGeocoder{result: libertyResult()}
	svc, _ := newTestService(t, provider, clock)

	svc.Locate(context.Background(), "liberty")
	clock.Advance(23 * time.Hour)
	svc.Locate(context.Background(), "liberty")
	assert.Equal(t, 1, provider.callCount())

	clock.Advance(time.Hour)
	svc.Locate(context.Background(), "liberty")
	assert.Equal(t, 2, provider.callCount())
}

func TestLocate_CancelledContextIsNotCached(t *testing.T) {
	provider := &mockGeocoder{result: libertyResult()}
	svc, store := newTestService(t, provider, clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := svc.Locate(ctx, "liberty")

	assert.Equal(t, domain.GeocodeTransientError, got.Status)
	assert.Equal(t, DefaultFallback, got.Coordinate)
	assert.False(t, store.Contains("geocode_liberty"))
}

// stallingGeocoder blocks its first call until the caller's context ends,
// then answers every later call with result.
type stallingGeocoder struct {
	started chan struct{}
	result  domain.GeocodingResult
	calls   atomic.Int32
}

func (g *stallingGeocoder) ForwardGeocode(ctx context.Context, _ string) (domain.GeocodingResult, error) {
	if g.calls.Add(1) == 1 {
		close(g.started)
		<-ctx.Done()
		return domain.GeocodingResult{}, ctx.Err()
	}
	return g.result, nil
}

func TestLocate_CancelledLeaderDoesNotFailWaiters(t *testing.T) {
	provider := &stallingGeocoder{started: make(chan struct{}), result: libertyResult()}
	svc, store := newTestService(t, provider, clockwork.NewFakeClock())

	leaderCtx, cancel := context.WithCancel(context.Background())
	leader := make(chan domain.Resolution, 1)
	go func() { leader <- svc.Locate(leaderCtx, "liberty") }()
	<-provider.started

	waiter := make(chan domain.Resolution, 1)
	go func() { waiter <- svc.Locate(context.Background(), "liberty") }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.Equal(t, domain.GeocodeTransientError, (<-leader).Status)
	got := <-waiter
	assert.Equal(t, domain.GeocodeResolved, got.Status)
	assert.Equal(t, domain.Coordinate{Lat: 39.2461, Lon: -94.4208}, got.Coordinate)
	assert.True(t, store.Contains("geocode_liberty"))
	assert.Equal(t, int32(2), provider.calls.Load())
}

func TestLocate_ConcurrentSameNameOneCall(t *testing.T) {
	provider := &mockGeocoder{result: libertyResult()}
	svc, _ := newTestService(t, provider, clockwork.NewFakeClock())

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := svc.Locate(context.Background(), "liberty")
			assert.Equal(t, domain.GeocodeResolved, got.Status)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, provider.callCount())
}

func TestQuery(t *testing.T) {
	svc, _ := newTestService(t, &mockGeocoder{}, nil)

	tests := []struct {
		name string
		want string
	}{
		{"houston", "Houston, TX, United States"},
		{"washington state", "Seattle, WA, United States"},
		{"Springfield", "Springfield, United States"},
		{"Reno, united states", "Reno, united states"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.Query(tt.name))
		})
	}
}

func TestLocate_RateLimitSpacesCalls(t *testing.T) {
	g, err := gazetteer.Default()
	require.NoError(t, err)
	opts := testOptions()
	opts.MinInterval = 50 * time.Millisecond
	provider := &mockGeocoder{result: libertyResult()}
	svc := NewService(provider, g, cache.NewStore(0, nil), time.Hour, opts, observability.NewMetricsForTesting(), discardLogger())

	start := time.Now()
	svc.Locate(context.Background(), "liberty")
	svc.Locate(context.Background(), "houston")
	svc.Locate(context.Background(), "dallas")

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, 3, provider.callCount())
}

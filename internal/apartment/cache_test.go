package apartment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VekotinVerstas/sensehel/internal/apartment"
	"github.com/VekotinVerstas/sensehel/internal/eventbus"
	"github.com/VekotinVerstas/sensehel/internal/gateway"
	"github.com/VekotinVerstas/sensehel/internal/gateway/gatewaytest"
	"github.com/VekotinVerstas/sensehel/internal/store"
	"github.com/VekotinVerstas/sensehel/pkg/api"
)

func testApartment() api.Apartment {
	return api.Apartment{
		ID:     1,
		Street: "Urho Kekkosen katu 7B",
		City:   "Helsinki",
		ApartmentSensors: []api.ApartmentSensor{
			{
				ID:         10,
				Identifier: "A81758FFFE030EDF",
				Sensor:     api.Sensor{ID: 2, Name: "elsys-ers", Description: "Elsys ERS"},
				Attributes: []api.SensorAttribute{
					{
						ID:          100,
						URI:         "sensehel/temperature",
						Description: "Temperature",
						UIType:      "celsius",
						Value:       json.Number("23"),
						UpdatedAt:   time.Date(2020, 1, 2, 15, 4, 5, 0, time.UTC),
					},
					{
						ID:          101,
						URI:         "sensehel/motion",
						Description: "Motion",
						Value:       json.Number("0"),
					},
				},
			},
		},
	}
}

// fakeFetcher serves a fixed apartment listing and counts calls.
type fakeFetcher struct {
	mu         sync.Mutex
	apartments []api.Apartment
	err        error
	calls      int
}

func (f *fakeFetcher) ListApartments(ctx context.Context) ([]api.Apartment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.apartments, f.err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestApartmentCachedAfterFirstFetch(t *testing.T) {
	fetcher := &fakeFetcher{apartments: []api.Apartment{testApartment()}}
	cache := apartment.NewCache(fetcher)

	first, err := cache.Apartment(context.Background())
	require.NoError(t, err)
	second, err := cache.Apartment(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestEmptyListingNotCached(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := apartment.NewCache(fetcher)

	_, err := cache.Apartment(context.Background())
	assert.ErrorIs(t, err, apartment.ErrNoApartmentRegistered)

	// backend state changes; the next call retries and caches
	fetcher.mu.Lock()
	fetcher.apartments = []api.Apartment{testApartment()}
	fetcher.mu.Unlock()

	got, err := cache.Apartment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Urho Kekkosen katu 7B", got.Street)
	assert.Equal(t, 2, fetcher.callCount())
}

func TestResetForcesRefetch(t *testing.T) {
	fetcher := &fakeFetcher{apartments: []api.Apartment{testApartment()}}
	cache := apartment.NewCache(fetcher)

	_, err := cache.Apartment(context.Background())
	require.NoError(t, err)

	cache.Reset()

	_, err = cache.Apartment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.callCount())
}

// Concurrent callers before the first fetch resolves must share a single
// network fetch. Proven end to end against the stub backend.
func TestConcurrentCallersSingleFetch(t *testing.T) {
	server := gatewaytest.NewServer()
	defer server.Close()
	server.Apartments = []api.Apartment{testApartment()}
	server.ApartmentDelay = 100 * time.Millisecond

	st := store.New(filepath.Join(t.TempDir(), "session.json"))
	bus := eventbus.New()
	defer bus.Shutdown()
	gw := gateway.New(server.URL, st, bus)
	_, err := gw.Login(context.Background(), server.Username, server.Password)
	require.NoError(t, err)

	cache := apartment.NewCache(gw)

	const callers = 8
	results := make([]*api.Apartment, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := cache.Apartment(context.Background())
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, server.Hits(http.MethodGet, "/apartments/"))
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestSensorAttributesFiltersByRequiredURIs(t *testing.T) {
	fetcher := &fakeFetcher{apartments: []api.Apartment{testApartment()}}
	cache := apartment.NewCache(fetcher)

	// service requires temperature and humidity; apartment provides
	// temperature and motion: only temperature qualifies
	attrs, err := cache.SensorAttributes(context.Background(), []string{
		"sensehel/temperature",
		"sensehel/humidity",
	})
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	assert.Equal(t, "sensehel/temperature", attrs[0].URI)
	assert.Equal(t, "A81758FFFE030EDF", attrs[0].Sensor.Identifier)
}

func TestSensorAttributesIsPure(t *testing.T) {
	fetcher := &fakeFetcher{apartments: []api.Apartment{testApartment()}}
	cache := apartment.NewCache(fetcher)
	required := []string{"sensehel/temperature"}

	first, err := cache.SensorAttributes(context.Background(), required)
	require.NoError(t, err)
	second, err := cache.SensorAttributes(context.Background(), required)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSensorAttributesEmptyRequirements(t *testing.T) {
	fetcher := &fakeFetcher{apartments: []api.Apartment{testApartment()}}
	cache := apartment.NewCache(fetcher)

	attrs, err := cache.SensorAttributes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, attrs)
}

func TestSensorValuesOnlyDisplayableAttributes(t *testing.T) {
	fetcher := &fakeFetcher{apartments: []api.Apartment{testApartment()}}
	cache := apartment.NewCache(fetcher)

	values, err := cache.SensorValues(context.Background())
	require.NoError(t, err)

	// the motion attribute has no display hint and is skipped
	require.Len(t, values, 1)
	assert.Equal(t, "Temperature", values[0].Description)
	assert.Equal(t, "celsius", values[0].UIType)
	assert.Equal(t, "23", values[0].Value)
	assert.Equal(t, "Elsys ERS", values[0].Name)
}

func TestFetchErrorPropagates(t *testing.T) {
	fetcher := &fakeFetcher{err: context.DeadlineExceeded}
	cache := apartment.NewCache(fetcher)

	_, err := cache.Apartment(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, fetcher.callCount())
}

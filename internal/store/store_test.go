package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldwise/internal/db"
	"worldwise/internal/logging"
	"worldwise/internal/model"
	"worldwise/internal/persist"
)

type memoryCache struct {
	mu     sync.Mutex
	cities []model.City
	writes int
	err    error
}

func (m *memoryCache) Get(context.Context) []model.City {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cities
}

func (m *memoryCache) Set(_ context.Context, cities []model.City) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.err != nil {
		return m.err
	}
	m.cities = cities
	return nil
}

func (m *memoryCache) snapshot() []model.City {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cities
}

func noDelays() Option { return WithDelays(0, 0, 0) }

func parisDraft() model.NewCity {
	return model.NewCity{
		CityName: "Paris",
		Country:  "France",
		Emoji:    "🇫🇷",
		Date:     time.Date(2027, 10, 31, 0, 0, 0, 0, time.UTC),
		Notes:    "croissants",
		Position: model.Position{Lat: 48.85, Lng: 2.35},
	}
}

func TestNewSeedsFromCache(t *testing.T) {
	cache := &memoryCache{cities: []model.City{city("1", "Lisbon")}}

	s := New(cache, noDelays())
	defer s.Close()

	st := s.State()
	require.Len(t, st.Cities, 1)
	assert.Equal(t, "Lisbon", st.Cities[0].CityName)
	assert.False(t, st.IsLoading)
	assert.True(t, st.CurrentCity.IsZero())
}

func TestNewWithEmptyCache(t *testing.T) {
	s := New(&memoryCache{}, noDelays())
	defer s.Close()

	assert.NotNil(t, s.State().Cities)
	assert.Empty(t, s.State().Cities)
}

func TestCreateCityAssignsUniqueIDsAndSelects(t *testing.T) {
	s := New(nil, noDelays())
	defer s.Close()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		created := s.CreateCity(parisDraft())
		require.NotEmpty(t, created.ID)
		assert.False(t, seen[created.ID], "duplicate id %s", created.ID)
		seen[created.ID] = true
		assert.Equal(t, created, s.State().CurrentCity)
	}
	assert.Len(t, s.State().Cities, 20)
}

func TestCreateCityRetriesCollidingIDs(t *testing.T) {
	ids := []string{"a", "a", "", "b"}
	var i int
	gen := func() string {
		id := ids[i]
		i++
		return id
	}
	s := New(nil, noDelays(), WithIDGenerator(gen))
	defer s.Close()

	first := s.CreateCity(parisDraft())
	second := s.CreateCity(parisDraft())

	assert.Equal(t, "a", first.ID)
	assert.Equal(t, "b", second.ID)
}

func TestOverlappingCreatesNeverShareAnID(t *testing.T) {
	// Every id comes out of the generator twice in a row.
	var mu sync.Mutex
	var n int
	gen := func() string {
		mu.Lock()
		defer mu.Unlock()
		id := strconv.Itoa(n / 2)
		n++
		return id
	}
	s := New(nil, noDelays(), WithIDGenerator(gen))
	defer s.Close()

	const creates = 20
	var wg sync.WaitGroup
	for i := 0; i < creates; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.CreateCity(parisDraft())
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, c := range s.State().Cities {
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
	assert.Len(t, seen, creates)
}

func TestSelectCity(t *testing.T) {
	cache := &memoryCache{cities: []model.City{city("1", "Lisbon"), city("2", "Paris")}}
	s := New(cache, noDelays())
	defer s.Close()

	got, found := s.SelectCity("2")

	assert.True(t, found)
	assert.Equal(t, "Paris", got.CityName)
	assert.Equal(t, got, s.State().CurrentCity)
	assert.False(t, s.State().IsLoading)
}

func TestSelectCurrentCityDoesNotDispatch(t *testing.T) {
	cache := &memoryCache{cities: []model.City{city("1", "Lisbon")}}
	s := New(cache, noDelays())
	defer s.Close()
	_, found := s.SelectCity("1")
	require.True(t, found)

	updates, cancel := s.Subscribe()
	defer cancel()
	<-updates

	got, found := s.SelectCity("1")

	assert.True(t, found)
	assert.Equal(t, "Lisbon", got.CityName)
	select {
	case st := <-updates:
		t.Fatalf("unexpected state transition: %+v", st)
	default:
	}
}

func TestSelectUnknownCityCommitsEmpty(t *testing.T) {
	cache := &memoryCache{cities: []model.City{city("1", "Lisbon")}}
	s := New(cache, noDelays())
	defer s.Close()
	s.SelectCity("1")

	got, found := s.SelectCity("nope")

	assert.False(t, found)
	assert.True(t, got.IsZero())
	assert.True(t, s.State().CurrentCity.IsZero())
}

func TestDeleteCity(t *testing.T) {
	cache := &memoryCache{cities: []model.City{city("1", "Lisbon"), city("2", "Paris")}}
	s := New(cache, noDelays())
	defer s.Close()

	s.DeleteCity("1")

	st := s.State()
	require.Len(t, st.Cities, 1)
	assert.Equal(t, "2", st.Cities[0].ID)
	assert.False(t, st.IsLoading)
}

func TestDeleteAbsentCityLeavesCollectionUnchanged(t *testing.T) {
	cache := &memoryCache{cities: []model.City{city("1", "Lisbon")}}
	s := New(cache, noDelays())
	defer s.Close()
	before := s.State().Cities

	s.DeleteCity("missing")

	assert.Equal(t, before, s.State().Cities)
}

func TestDispatchUnknownActionPanicsAndKeepsState(t *testing.T) {
	s := New(&memoryCache{cities: []model.City{city("1", "Lisbon")}}, noDelays())
	defer s.Close()

	assert.Panics(t, func() { s.Dispatch(rejected{}) })

	assert.Len(t, s.State().Cities, 1)
	s.DeleteCity("1")
	assert.Empty(t, s.State().Cities, "store must stay usable after a rejected action")
}

func TestUninitializedStorePanics(t *testing.T) {
	var nilStore *Store
	assert.PanicsWithValue(t, ErrNotInitialized, func() { nilStore.State() })

	var zero Store
	assert.PanicsWithValue(t, ErrNotInitialized, func() { zero.CreateCity(parisDraft()) })
}

func TestStateSnapshotIsIsolated(t *testing.T) {
	s := New(&memoryCache{cities: []model.City{city("1", "Lisbon")}}, noDelays())
	defer s.Close()

	st := s.State()
	st.Cities[0].CityName = "changed"

	assert.Equal(t, "Lisbon", s.State().Cities[0].CityName)
}

func TestMirrorFailureIsNotSurfaced(t *testing.T) {
	cache := &memoryCache{err: errors.New("disk full")}
	s := New(cache, noDelays())

	created := s.CreateCity(parisDraft())
	require.NoError(t, s.Close())

	assert.Equal(t, []model.City{created}, s.State().Cities)
	assert.Nil(t, cache.snapshot())
}

func TestCloseFlushesLatestCollection(t *testing.T) {
	cache := &memoryCache{}
	s := New(cache, noDelays())

	paris := s.CreateCity(parisDraft())
	berlin := parisDraft()
	berlin.CityName = "Berlin"
	b := s.CreateCity(berlin)
	s.DeleteCity(paris.ID)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, []model.City{b}, cache.snapshot())
}

func TestSubscribeReceivesLatestState(t *testing.T) {
	s := New(nil, noDelays())

	updates, cancel := s.Subscribe()
	initial := <-updates
	assert.Empty(t, initial.Cities)

	s.CreateCity(parisDraft())
	latest := <-updates
	require.Len(t, latest.Cities, 1)
	assert.Equal(t, "Paris", latest.CurrentCity.CityName)

	cancel()
	cancel()
	_, open := <-updates
	assert.False(t, open)

	other, _ := s.Subscribe()
	require.NoError(t, s.Close())
	<-other
	_, open = <-other
	assert.False(t, open)
}

func TestRoundTripThroughLocalStorage(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "worldwise.db"))
	require.NoError(t, err)
	defer database.Close()
	empty := func() []model.City { return []model.City{} }

	first := New(persist.NewValue(database, "cities", empty, nil), noDelays())
	paris := first.CreateCity(parisDraft())
	require.NoError(t, first.Close())

	second := New(persist.NewValue(database, "cities", empty, nil), noDelays())
	defer second.Close()

	cities := second.State().Cities
	require.Len(t, cities, 1)
	assert.Equal(t, paris.ID, cities[0].ID)
	assert.Equal(t, "Paris", cities[0].CityName)
	assert.Equal(t, "🇫🇷", cities[0].Emoji)
	assert.Equal(t, "croissants", cities[0].Notes)
	assert.Equal(t, paris.Position, cities[0].Position)
	assert.True(t, paris.Date.Equal(cities[0].Date))
}

func TestMirrorSharesDatabaseWithOtherWriters(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "worldwise.db"))
	require.NoError(t, err)
	defer database.Close()
	empty := func() []model.City { return []model.City{} }
	logger := logging.Discard()

	s := New(persist.NewValue(database, "cities", empty, logger), noDelays())

	prefs := persist.NewValue(database, "ui_prefs", func() map[string]int { return nil }, logger)
	stop := make(chan struct{})
	prefsDone := make(chan error, 1)
	go func() {
		for i := 0; ; i++ {
			select {
			case <-stop:
				prefsDone <- nil
				return
			default:
			}
			if err := prefs.Set(context.Background(), map[string]int{"n": i}); err != nil {
				prefsDone <- err
				return
			}
		}
	}()

	const creates = 50
	for i := 0; i < creates; i++ {
		s.CreateCity(parisDraft())
	}
	require.NoError(t, s.Close())
	close(stop)
	require.NoError(t, <-prefsDone)

	reopened := New(persist.NewValue(database, "cities", empty, logger), noDelays())
	defer reopened.Close()
	assert.Len(t, reopened.State().Cities, creates)
}

func TestCreateThenDeleteEndToEnd(t *testing.T) {
	cache := &memoryCache{}
	s := New(cache, noDelays())

	paris := s.CreateCity(parisDraft())
	assert.Equal(t, []model.Country{{Country: "France", Emoji: "🇫🇷"}}, model.Countries(s.State().Cities))

	s.DeleteCity(paris.ID)
	require.NoError(t, s.Close())

	st := s.State()
	assert.Empty(t, st.Cities)
	assert.Equal(t, paris.ID, st.CurrentCity.ID, "deleting does not clear the current city")
	assert.Empty(t, cache.snapshot())
}

// gatedSleep blocks every simulated delay until released and reports each call.
type gatedSleep struct {
	calls chan time.Duration
	gate  chan struct{}
}

func newGatedSleep() *gatedSleep {
	return &gatedSleep{calls: make(chan time.Duration, 8), gate: make(chan struct{})}
}

func (g *gatedSleep) sleep(d time.Duration) {
	g.calls <- d
	<-g.gate
}

func TestOperationsOverlapByDefault(t *testing.T) {
	s := New(&memoryCache{cities: []model.City{city("1", "Lisbon")}}, WithDelays(time.Second, time.Second, 2*time.Second))
	defer s.Close()
	g := newGatedSleep()
	s.sleep = g.sleep

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.CreateCity(parisDraft()) }()
	go func() { defer wg.Done(); s.DeleteCity("1") }()

	got := []time.Duration{<-g.calls, <-g.calls}
	assert.ElementsMatch(t, []time.Duration{time.Second, 2 * time.Second}, got)
	assert.True(t, s.State().IsLoading)

	close(g.gate)
	wg.Wait()

	st := s.State()
	require.Len(t, st.Cities, 1)
	assert.Equal(t, "Paris", st.Cities[0].CityName)
	assert.False(t, st.IsLoading)
}

func TestSerializedOperationsRunInOrder(t *testing.T) {
	s := New(&memoryCache{}, WithDelays(time.Second, time.Second, 2*time.Second), WithSerializedOperations(),
		WithIDGenerator(func() string { return "paris" }))
	defer s.Close()
	g := newGatedSleep()
	s.sleep = g.sleep

	var wg sync.WaitGroup
	wg.Add(1)
	go func() { defer wg.Done(); s.CreateCity(parisDraft()) }()
	require.Equal(t, time.Second, <-g.calls)

	wg.Add(1)
	go func() { defer wg.Done(); s.DeleteCity("paris") }()

	select {
	case d := <-g.calls:
		t.Fatalf("delete started while create was still running (delay %s)", d)
	case <-time.After(50 * time.Millisecond):
	}

	g.gate <- struct{}{}
	require.Equal(t, 2*time.Second, <-g.calls)
	g.gate <- struct{}{}
	wg.Wait()

	assert.Empty(t, s.State().Cities, "delete observed the city created before it")
}

func ExampleStore_CreateCity() {
	s := New(nil, WithDelays(0, 0, 0), WithIDGenerator(func() string { return "c1" }))
	defer s.Close()

	created := s.CreateCity(parisDraft())
	fmt.Println(created.ID, created.CityName, len(s.State().Cities))
	// Output: c1 Paris 1
}

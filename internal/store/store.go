// Package store holds the process-wide city collection. Every change goes
// through Dispatch and the pure Reduce function; the collection is mirrored to
// local storage in the background after each change.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"worldwise/internal/model"
)

// ErrNotInitialized is the panic value when a Store is used without New.
var ErrNotInitialized = errors.New("store: cities store used before initialization")

const (
	defaultCreateDelay  = 500 * time.Millisecond
	defaultSelectDelay  = 500 * time.Millisecond
	defaultDeleteDelay  = 200 * time.Millisecond
	defaultWriteTimeout = 5 * time.Second
)

// Cache is the local storage the collection is loaded from and mirrored to.
type Cache interface {
	Get(ctx context.Context) []model.City
	Set(ctx context.Context, cities []model.City) error
}

// Store owns the city collection and the current selection.
type Store struct {
	initialized bool

	mu      sync.Mutex
	state   State
	closed  bool
	subs    map[int]chan State
	nextSub int

	cache        Cache
	pending      chan []model.City
	wg           sync.WaitGroup
	writeTimeout time.Duration

	queue       *semaphore.Weighted
	createDelay time.Duration
	selectDelay time.Duration
	deleteDelay time.Duration
	sleep       func(time.Duration)
	newID       func() string
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDelays sets the simulated latency of create, select and delete.
func WithDelays(create, sel, del time.Duration) Option {
	return func(s *Store) {
		s.createDelay = create
		s.selectDelay = sel
		s.deleteDelay = del
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator replaces the UUID generator used for new cities. newID is
// called with the store locked and must not call back into the store.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithWriteTimeout bounds each mirror write and the initial read.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithSerializedOperations runs CreateCity, SelectCity and DeleteCity one at a
// time in arrival order instead of letting them overlap.
func WithSerializedOperations() Option {
	return func(s *Store) {
		s.queue = semaphore.NewWeighted(1)
	}
}

// New loads the collection from cache and starts the mirror writer. A nil
// cache keeps the collection in memory only.
func New(cache Cache, opts ...Option) *Store {
	s := &Store{
		subs:         make(map[int]chan State),
		cache:        cache,
		writeTimeout: defaultWriteTimeout,
		createDelay:  defaultCreateDelay,
		selectDelay:  defaultSelectDelay,
		deleteDelay:  defaultDeleteDelay,
		sleep:        time.Sleep,
		newID:        uuid.NewString,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "store"))

	seed := []model.City{}
	if cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		if stored := cache.Get(ctx); stored != nil {
			seed = stored
		}
		cancel()

		s.pending = make(chan []model.City, 1)
		s.wg.Add(1)
		go s.mirror()
	}

	s.initialized = true
	s.Dispatch(CitiesLoaded{Cities: seed})
	s.logger.Info("cities loaded", slog.Int("count", len(seed)))
	return s
}

// Dispatch applies action. Unknown actions panic with *UnknownActionError.
func (s *Store) Dispatch(action Action) {
	s.mustBeInitialized()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(action)
}

// apply must be called with s.mu held.
func (s *Store) apply(action Action) {
	next := Reduce(s.state, action)
	s.state = next
	s.logger.Debug("dispatch",
		slog.String("action", action.Kind()),
		slog.Int("cities", len(next.Cities)),
		slog.Bool("loading", next.IsLoading))

	if changesCities(action) {
		s.enqueueMirror(next.Cities)
	}
	s.publish(next)
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mustBeInitialized()

	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.state)
}

// Subscribe returns a channel that receives the latest state after every
// dispatch, starting with the current one. Slow readers only see the newest
// state. Call the returned func to stop receiving.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mustBeInitialized()

	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	ch <- snapshot(s.state)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// CreateCity commits draft under a fresh id and makes it the current city.
// Callers validate the draft first.
func (s *Store) CreateCity(draft model.NewCity) model.City {
	s.mustBeInitialized()
	release := s.acquire()
	defer release()

	s.Dispatch(Loading{})
	s.sleep(s.createDelay)

	// The id is picked and committed under one lock so overlapping creates
	// cannot claim the same id.
	s.mu.Lock()
	city := draft.WithID(s.uniqueID())
	s.apply(CityCreated{City: city})
	s.mu.Unlock()
	s.logger.Info("city created", slog.String("id", city.ID), slog.String("city", city.CityName))
	return city
}

// SelectCity makes the city with id current. Selecting the current city again
// does nothing. An unknown id commits the empty city and reports false.
func (s *Store) SelectCity(id string) (model.City, bool) {
	s.mustBeInitialized()
	release := s.acquire()
	defer release()

	s.mu.Lock()
	current := s.state.CurrentCity
	s.mu.Unlock()
	if current.ID == id {
		return current, !current.IsZero()
	}

	s.Dispatch(Loading{})
	s.sleep(s.selectDelay)

	city, found := s.find(id)
	s.Dispatch(CityLoaded{City: city})
	if !found {
		s.logger.Debug("city not found", slog.String("id", id))
	}
	return city, found
}

// DeleteCity removes the city with id. Removing an unknown id changes nothing.
func (s *Store) DeleteCity(id string) {
	s.mustBeInitialized()
	release := s.acquire()
	defer release()

	s.Dispatch(Loading{})
	s.sleep(s.deleteDelay)
	s.Dispatch(CityDeleted{ID: id})
	s.logger.Info("city deleted", slog.String("id", id))
}

// Close flushes the pending mirror write, stops the writer and closes all
// subscriptions. The in-memory collection stays usable.
func (s *Store) Close() error {
	s.mustBeInitialized()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.pending != nil {
		close(s.pending)
	}
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Store) mustBeInitialized() {
	if s == nil || !s.initialized {
		panic(ErrNotInitialized)
	}
}

func (s *Store) acquire() func() {
	if s.queue == nil {
		return func() {}
	}
	// Background never expires, so Acquire cannot fail.
	_ = s.queue.Acquire(context.Background(), 1)
	return func() { s.queue.Release(1) }
}

func (s *Store) find(id string) (model.City, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id)
}

func (s *Store) findLocked(id string) (model.City, bool) {
	for _, c := range s.state.Cities {
		if c.ID == id {
			return c, true
		}
	}
	return model.City{}, false
}

// uniqueID must be called with s.mu held.
func (s *Store) uniqueID() string {
	for {
		id := s.newID()
		if id == "" {
			continue
		}
		if _, taken := s.findLocked(id); !taken {
			return id
		}
		s.logger.Warn("generated id already in use, retrying", slog.String("id", id))
	}
}

// enqueueMirror hands cities to the writer, replacing any snapshot it has not
// picked up yet. Must be called with s.mu held.
func (s *Store) enqueueMirror(cities []model.City) {
	if s.pending == nil || s.closed {
		return
	}
	select {
	case s.pending <- cities:
	default:
		select {
		case <-s.pending:
		default:
		}
		s.pending <- cities
	}
}

func (s *Store) mirror() {
	defer s.wg.Done()
	for cities := range s.pending {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		err := s.cache.Set(ctx, cities)
		cancel()
		if err != nil {
			s.logger.Warn("failed to mirror cities", slog.Int("count", len(cities)), slog.Any("error", err))
			continue
		}
		s.logger.Debug("cities mirrored", slog.Int("count", len(cities)))
	}
}

// publish must be called with s.mu held.
func (s *Store) publish(st State) {
	if s.closed {
		return
	}
	for _, ch := range s.subs {
		snap := snapshot(st)
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func snapshot(st State) State {
	st.Cities = cloneCities(st.Cities)
	return st
}

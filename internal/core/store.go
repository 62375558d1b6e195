package core

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// FlightState is a point-in-time copy of the store.
type FlightState struct {
	Flights      []FlightOffer        `json:"flights"`
	Filtered     []FlightOffer        `json:"filteredFlights"`
	Loading      bool                 `json:"loading"`
	Error        string               `json:"error,omitempty"`
	SearchParams *FlightSearchRequest `json:"searchParams,omitempty"`
	Filters      Filters              `json:"filters"`
	SortBy       SortOption           `json:"sortBy"`
}

type Observer func(FlightState)

// Deriver computes the filtered and sorted view.
type Deriver func(flights []FlightOffer, filters Filters, sortBy SortOption) []FlightOffer

// Store owns the raw search results, the filter and sort configuration and
// the derived view. Every command that changes an input recomputes the view
// before the lock is released, so readers never see a view that belongs to a
// different flights/filters/sort triple.
type Store struct {
	mu        sync.RWMutex
	state     FlightState
	derive    Deriver
	logger    *slog.Logger
	observers map[int]Observer
	nextID    int
	searchGen uint64
}

type StoreOption func(*Store)

func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithDeriver(d Deriver) StoreOption {
	return func(s *Store) {
		if d != nil {
			s.derive = d
		}
	}
}

func WithSortOption(opt SortOption) StoreOption {
	return func(s *Store) { s.state.SortBy = opt }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		state: FlightState{
			Flights:  []FlightOffer{},
			Filtered: []FlightOffer{},
			Filters:  DefaultFilters(),
			SortBy:   SortByPrice,
		},
		derive:    DeriveView,
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
		observers: map[int]Observer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetFlights replaces the raw results and resets the price bound to the
// range of the new set.
func (s *Store) SetFlights(flights []FlightOffer) {
	s.update(func(st *FlightState) bool {
		st.Flights = cloneOffers(flights)
		st.Filters.PriceRange, _ = PriceRangeOf(st.Flights)
		return true
	})
}

func (s *Store) SetLoading(loading bool) {
	s.update(func(st *FlightState) bool {
		st.Loading = loading
		return false
	})
}

func (s *Store) SetError(msg string) {
	s.update(func(st *FlightState) bool {
		st.Error = msg
		return false
	})
}

func (s *Store) SetSearchParams(req *FlightSearchRequest) {
	s.update(func(st *FlightState) bool {
		if req == nil {
			st.SearchParams = nil
			return false
		}
		cp := *req
		st.SearchParams = &cp
		return false
	})
}

// BeginSearch marks a new search as in flight and returns its generation.
// Any earlier search still in flight becomes stale.
func (s *Store) BeginSearch(req FlightSearchRequest) uint64 {
	var gen uint64
	s.update(func(st *FlightState) bool {
		s.searchGen++
		gen = s.searchGen
		st.Loading = true
		st.Error = ""
		st.SearchParams = &req
		return false
	})
	return gen
}

// CompleteSearch installs the flights of search gen and clears loading. It
// reports false and changes nothing when a newer search has begun.
func (s *Store) CompleteSearch(gen uint64, flights []FlightOffer) bool {
	return s.commit(gen, func(st *FlightState) bool {
		st.Flights = cloneOffers(flights)
		st.Filters.PriceRange, _ = PriceRangeOf(st.Flights)
		st.Loading = false
		return true
	})
}

// FailSearch records the error of search gen, keeping the previous flights.
// It reports false and changes nothing when a newer search has begun.
func (s *Store) FailSearch(gen uint64, msg string) bool {
	return s.commit(gen, func(st *FlightState) bool {
		st.Error = msg
		st.Loading = false
		return false
	})
}

// RejectSearch records a request that never started. Searches still in
// flight become stale.
func (s *Store) RejectSearch(msg string) {
	s.update(func(st *FlightState) bool {
		s.searchGen++
		st.Error = msg
		st.Loading = false
		return false
	})
}

type FilterOption func(*Filters)

func WithStops(buckets ...StopBucket) FilterOption {
	return func(f *Filters) { f.Stops = append([]StopBucket(nil), buckets...) }
}

func WithPriceRange(min, max float64) FilterOption {
	return func(f *Filters) { f.PriceRange = PriceRange{Min: min, Max: max} }
}

func WithAirlines(codes ...string) FilterOption {
	return func(f *Filters) { f.Airlines = append([]string(nil), codes...) }
}

// PatchFilters merges the given options over the current filters.
func (s *Store) PatchFilters(opts ...FilterOption) {
	s.update(func(st *FlightState) bool {
		for _, opt := range opts {
			opt(&st.Filters)
		}
		return true
	})
}

func (s *Store) SetSortBy(opt SortOption) {
	s.update(func(st *FlightState) bool {
		st.SortBy = opt
		return true
	})
}

func (s *Store) ResetFilters() {
	s.update(func(st *FlightState) bool {
		st.Filters = DefaultFilters()
		st.Filters.PriceRange, _ = PriceRangeOf(st.Flights)
		return true
	})
}

func (s *Store) State() FlightState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// View returns the current filtered and sorted flights.
func (s *Store) View() []FlightOffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneOffers(s.state.Filtered)
}

func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFilters(s.state.Filters)
}

// Subscribe registers an observer called after every change. The returned
// func removes it.
func (s *Store) Subscribe(o Observer) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = o
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// update applies mutate under the write lock, recomputes the view when
// mutate reports that an input changed, then notifies observers outside the
// lock.
func (s *Store) update(mutate func(*FlightState) bool) {
	s.mu.Lock()
	s.applyLocked(mutate)
}

// commit is update guarded by the search generation. The check and the
// write happen under one lock.
func (s *Store) commit(gen uint64, mutate func(*FlightState) bool) bool {
	s.mu.Lock()
	if gen != s.searchGen {
		s.mu.Unlock()
		return false
	}
	s.applyLocked(mutate)
	return true
}

// applyLocked must be called with s.mu held and releases it.
func (s *Store) applyLocked(mutate func(*FlightState) bool) {
	if mutate(&s.state) {
		s.recompute()
	}
	snap := s.snapshot()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}

func (s *Store) recompute() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("store.recompute_failed",
				"error", fmt.Sprint(r),
				"flights", len(s.state.Flights),
				"fallback", "unfiltered",
			)
			s.state.Filtered = cloneOffers(s.state.Flights)
		}
	}()

	view := s.derive(s.state.Flights, cloneFilters(s.state.Filters), s.state.SortBy)
	if view == nil {
		view = []FlightOffer{}
	}
	s.state.Filtered = view
}

func (s *Store) snapshot() FlightState {
	st := s.state
	st.Flights = cloneOffers(s.state.Flights)
	st.Filtered = cloneOffers(s.state.Filtered)
	st.Filters = cloneFilters(s.state.Filters)
	if s.state.SearchParams != nil {
		cp := *s.state.SearchParams
		st.SearchParams = &cp
	}
	return st
}

func cloneOffers(in []FlightOffer) []FlightOffer {
	out := make([]FlightOffer, len(in))
	copy(out, in)
	return out
}

func cloneFilters(f Filters) Filters {
	out := f
	out.Stops = append([]StopBucket(nil), f.Stops...)
	out.Airlines = append([]string(nil), f.Airlines...)
	return out
}

package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/harshit-mishr/sky-scrapper/internal/config"
)

type funcAdapter struct {
	fakeFlightAdapter
	search func(ctx context.Context, req FlightSearchRequest) (*FlightSearchResponse, error)
}

func (f *funcAdapter) SearchFlights(ctx context.Context, req FlightSearchRequest) (*FlightSearchResponse, error) {
	return f.search(ctx, req)
}

func newTestOrchestrator(timeout time.Duration, adapters ...FlightAdapter) *Orchestrator {
	cfg := &config.Config{Mode: config.ModeMock, Timeout: timeout}
	router := NewRouter(cfg)
	for _, a := range adapters {
		router.Register(a)
	}
	return NewOrchestrator(router, NewStore(), nil)
}

func validRequest() FlightSearchRequest {
	return FlightSearchRequest{From: "jfk", To: "lhr", DepartDate: "2026-06-12"}
}

func TestNormalizeRequest(t *testing.T) {
	req, err := NormalizeRequest(validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.From != "JFK" || req.To != "LHR" || req.Adults != 1 {
		t.Errorf("expected upper-cased codes and one adult, got %+v", req)
	}

	bad := []FlightSearchRequest{
		{To: "LHR", DepartDate: "2026-06-12"},
		{From: "JFK", To: "JFK", DepartDate: "2026-06-12"},
		{From: "JFK", To: "LHR"},
		{From: "JFK", To: "LHR", DepartDate: "12/06/2026"},
		{From: "JFK", To: "LHR", DepartDate: "2026-06-12", ReturnDate: "2026-06-10"},
		{From: "JFK", To: "LHR", DepartDate: "2026-06-12", Adults: 1, Infants: 2},
		{From: "JFK", To: "LHR", DepartDate: "2026-06-12", Children: -1},
	}
	for _, r := range bad {
		_, err := NormalizeRequest(r)
		if !IsKind(err, KindInvalidParams) {
			t.Errorf("expected invalid params for %+v, got %v", r, err)
		}
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest in chain for %+v", r)
		}
	}
}

func TestSearch_PopulatesStore(t *testing.T) {
	mock := &fakeFlightAdapter{name: "mock_flights", avail: true, flights: []FlightOffer{
		offer("500-flight", "500", 0),
		offer("300-flight", "300", 1),
	}}
	o := newTestOrchestrator(time.Second, mock)

	res, err := o.Search(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalFound != 2 || !reflect.DeepEqual(res.Providers, []string{"mock_flights"}) {
		t.Errorf("unexpected result: %+v", res)
	}

	st := o.Store().State()
	if st.Loading || st.Error != "" {
		t.Errorf("expected idle store without error, got loading=%v error=%q", st.Loading, st.Error)
	}
	if st.SearchParams == nil || st.SearchParams.From != "JFK" {
		t.Errorf("expected search params recorded, got %+v", st.SearchParams)
	}
	if !reflect.DeepEqual(ids(st.Filtered), []string{"300-flight", "500-flight"}) {
		t.Errorf("expected sorted view, got %v", ids(st.Filtered))
	}
	if st.Flights[0].Source != "mock_flights" {
		t.Errorf("expected source stamped, got %q", st.Flights[0].Source)
	}
}

func TestSearch_ValidationErrorSetsStoreError(t *testing.T) {
	o := newTestOrchestrator(time.Second, &fakeFlightAdapter{name: "mock_flights", avail: true})

	_, err := o.Search(context.Background(), FlightSearchRequest{From: "JFK"})
	if !IsKind(err, KindInvalidParams) {
		t.Fatalf("expected invalid params, got %v", err)
	}
	if o.Store().State().Error == "" {
		t.Error("expected store error message")
	}
}

func TestSearch_AllProvidersFailKeepsPreviousFlights(t *testing.T) {
	failing := &fakeFlightAdapter{
		name:  "mock_flights",
		avail: true,
		err:   &SearchError{Op: "amadeus.search_flights", Kind: KindRateLimited},
	}
	o := newTestOrchestrator(time.Second, failing)
	o.Store().SetFlights([]FlightOffer{offer("old", "100", 0)})

	_, err := o.Search(context.Background(), validRequest())
	if !IsKind(err, KindRateLimited) {
		t.Fatalf("expected rate limited error, got %v", err)
	}

	st := o.Store().State()
	if st.Error != "Too many requests. Please try again later." {
		t.Errorf("unexpected store error %q", st.Error)
	}
	if st.Loading {
		t.Error("expected loading cleared")
	}
	if !reflect.DeepEqual(ids(st.Flights), []string{"old"}) {
		t.Errorf("expected previous flights kept, got %v", ids(st.Flights))
	}
}

func TestSearch_NoProviders(t *testing.T) {
	o := newTestOrchestrator(time.Second, &fakeFlightAdapter{name: "amadeus", avail: true})

	res, err := o.Search(context.Background(), validRequest())
	if !IsKind(err, KindNoProviders) || !errors.Is(err, ErrNoProviders) {
		t.Fatalf("expected no providers error, got %v", err)
	}
	if res == nil || len(res.Errors) != 1 {
		t.Errorf("expected a provider error entry, got %+v", res)
	}
}

func TestSearch_TimeoutKeepsOtherProviders(t *testing.T) {
	slow := &fakeFlightAdapter{name: "mock_slow", avail: true, block: make(chan struct{})}
	fast := &fakeFlightAdapter{name: "mock_flights", avail: true, flights: []FlightOffer{offer("a", "100", 0)}}
	o := newTestOrchestrator(50*time.Millisecond, slow, fast)

	res, err := o.Search(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("partial failure must not be an error: %v", err)
	}
	if len(res.Errors) != 1 || res.Errors[0].Reason != "timeout" {
		t.Errorf("expected one timeout error, got %+v", res.Errors)
	}
	if res.TotalFound != 1 {
		t.Errorf("expected 1 flight, got %d", res.TotalFound)
	}
}

func TestSearch_StaleResponseDropped(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	a := &funcAdapter{
		fakeFlightAdapter: fakeFlightAdapter{name: "mock_flights", avail: true},
		search: func(ctx context.Context, req FlightSearchRequest) (*FlightSearchResponse, error) {
			if req.To == "LHR" {
				started <- struct{}{}
				<-release
				return &FlightSearchResponse{Data: []FlightOffer{offer("old-route", "100", 0)}}, nil
			}
			return &FlightSearchResponse{Data: []FlightOffer{offer("new-route", "200", 0)}}, nil
		},
	}
	o := newTestOrchestrator(5*time.Second, a)

	type outcome struct {
		res *SearchResult
		err error
	}
	firstDone := make(chan outcome, 1)
	go func() {
		res, err := o.Search(context.Background(), validRequest())
		firstDone <- outcome{res, err}
	}()
	<-started

	second := validRequest()
	second.To = "CDG"
	if _, err := o.Search(context.Background(), second); err != nil {
		t.Fatalf("second search: %v", err)
	}

	close(release)
	first := <-firstDone
	if first.err != nil {
		t.Fatalf("first search: %v", first.err)
	}
	if !first.res.Stale {
		t.Error("expected the superseded search to be flagged stale")
	}

	st := o.Store().State()
	if !reflect.DeepEqual(ids(st.Flights), []string{"new-route"}) {
		t.Errorf("stale response must not overwrite newer results, got %v", ids(st.Flights))
	}
	if st.SearchParams.To != "CDG" {
		t.Errorf("expected params of the newer search, got %s", st.SearchParams.To)
	}
}

func TestSearch_SupersededSearchLeavesNewerInFlight(t *testing.T) {
	started := make(chan string, 2)
	releaseOld := make(chan struct{})
	releaseNew := make(chan struct{})

	a := &funcAdapter{
		fakeFlightAdapter: fakeFlightAdapter{name: "mock_flights", avail: true},
		search: func(ctx context.Context, req FlightSearchRequest) (*FlightSearchResponse, error) {
			started <- req.To
			if req.To == "LHR" {
				<-releaseOld
				return &FlightSearchResponse{Data: []FlightOffer{offer("old", "100", 0)}}, nil
			}
			<-releaseNew
			return &FlightSearchResponse{Data: []FlightOffer{offer("new", "200", 0)}}, nil
		},
	}
	o := newTestOrchestrator(5*time.Second, a)

	oldDone := make(chan *SearchResult, 1)
	go func() {
		res, _ := o.Search(context.Background(), validRequest())
		oldDone <- res
	}()
	<-started

	newer := validRequest()
	newer.To = "CDG"
	newDone := make(chan error, 1)
	go func() {
		_, err := o.Search(context.Background(), newer)
		newDone <- err
	}()
	<-started

	close(releaseOld)
	if res := <-oldDone; !res.Stale {
		t.Fatal("expected the older search to be flagged stale")
	}

	st := o.Store().State()
	if !st.Loading || len(st.Flights) != 0 || st.SearchParams.To != "CDG" {
		t.Errorf("newer search in flight to CDG must be untouched: loading=%v flights=%v to=%s",
			st.Loading, ids(st.Flights), st.SearchParams.To)
	}

	close(releaseNew)
	if err := <-newDone; err != nil {
		t.Fatalf("newer search: %v", err)
	}
	st = o.Store().State()
	if st.Loading || !reflect.DeepEqual(ids(st.Flights), []string{"new"}) {
		t.Errorf("expected newer results installed, got loading=%v flights=%v", st.Loading, ids(st.Flights))
	}
}

func TestSearch_ValidationErrorSupersedesInFlightSearch(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	a := &funcAdapter{
		fakeFlightAdapter: fakeFlightAdapter{name: "mock_flights", avail: true},
		search: func(ctx context.Context, req FlightSearchRequest) (*FlightSearchResponse, error) {
			started <- struct{}{}
			<-release
			return &FlightSearchResponse{Data: []FlightOffer{offer("old", "100", 0)}}, nil
		},
	}
	o := newTestOrchestrator(5*time.Second, a)

	done := make(chan *SearchResult, 1)
	go func() {
		res, _ := o.Search(context.Background(), validRequest())
		done <- res
	}()
	<-started

	bad := validRequest()
	bad.To = bad.From
	if _, err := o.Search(context.Background(), bad); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}

	close(release)
	if res := <-done; !res.Stale {
		t.Error("expected the in-flight search to be flagged stale")
	}

	st := o.Store().State()
	if st.Error == "" || st.Loading || len(st.Flights) != 0 {
		t.Errorf("validation error must stand: error=%q loading=%v flights=%v", st.Error, st.Loading, ids(st.Flights))
	}
}

func TestSearchAirports(t *testing.T) {
	a := &fakeFlightAdapter{name: "mock_flights", avail: true, airports: []Airport{
		{IATACode: "LHR", Name: "Heathrow"},
		{IATACode: "LGW", Name: "Gatwick"},
	}}
	b := &fakeFlightAdapter{name: "mock_backup", avail: true, airports: []Airport{{IATACode: "LHR", Name: "London Heathrow"}}}
	o := newTestOrchestrator(time.Second, a, b)

	if got := o.SearchAirports(context.Background(), "L"); len(got) != 0 {
		t.Errorf("expected no lookup for a single character, got %v", got)
	}
	if len(a.keywords) != 0 {
		t.Errorf("expected no adapter call, got %v", a.keywords)
	}

	got := o.SearchAirports(context.Background(), "lon")
	if len(got) != 2 || got[0].IATACode != "LHR" || got[1].IATACode != "LGW" {
		t.Errorf("expected merged unique airports, got %+v", got)
	}
}

func TestSearchAirports_FailureYieldsEmpty(t *testing.T) {
	a := &fakeFlightAdapter{name: "mock_flights", avail: true, err: errors.New("boom")}
	o := newTestOrchestrator(time.Second, a)

	got := o.SearchAirports(context.Background(), "lon")
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

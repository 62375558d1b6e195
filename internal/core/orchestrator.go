package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	defaultTimeout   = 15 * time.Second
	minKeywordLength = 2
	dateLayout       = "2006-01-02"
)

// Orchestrator runs flight searches against the active providers and feeds
// the results into a Store. Only the most recently started search may
// update the store.
type Orchestrator struct {
	router  *Router
	store   *Store
	logger  *slog.Logger
	timeout time.Duration
}

func NewOrchestrator(router *Router, store *Store, logger *slog.Logger) *Orchestrator {
	if store == nil {
		store = NewStore(WithLogger(logger))
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	timeout := defaultTimeout
	if router.cfg.Timeout > 0 {
		timeout = router.cfg.Timeout
	}
	return &Orchestrator{router: router, store: store, logger: logger, timeout: timeout}
}

func (o *Orchestrator) Store() *Store {
	return o.store
}

// NormalizeRequest validates a search request and fills defaults.
func NormalizeRequest(req FlightSearchRequest) (FlightSearchRequest, error) {
	req.From = strings.ToUpper(strings.TrimSpace(req.From))
	req.To = strings.ToUpper(strings.TrimSpace(req.To))
	req.DepartDate = strings.TrimSpace(req.DepartDate)
	req.ReturnDate = strings.TrimSpace(req.ReturnDate)

	invalid := func(detail string) (FlightSearchRequest, error) {
		return req, &SearchError{Op: "search.validate", Kind: KindInvalidParams, Detail: detail, Err: ErrInvalidRequest}
	}

	if req.From == "" || req.To == "" {
		return invalid("origin and destination airports are required")
	}
	if req.From == req.To {
		return invalid("origin and destination must differ")
	}
	if req.DepartDate == "" {
		return invalid("departure date is required")
	}
	depart, err := time.Parse(dateLayout, req.DepartDate)
	if err != nil {
		return invalid(fmt.Sprintf("departure date %q is not YYYY-MM-DD", req.DepartDate))
	}
	if req.ReturnDate != "" {
		ret, err := time.Parse(dateLayout, req.ReturnDate)
		if err != nil {
			return invalid(fmt.Sprintf("return date %q is not YYYY-MM-DD", req.ReturnDate))
		}
		if ret.Before(depart) {
			return invalid("return date is before departure date")
		}
	}

	if req.Adults == 0 {
		req.Adults = 1
	}
	if req.Adults < 1 || req.Children < 0 || req.Infants < 0 {
		return invalid("passenger counts must not be negative and at least one adult is required")
	}
	if req.Infants > req.Adults {
		return invalid("each infant must travel with an adult")
	}
	if req.MaxResults < 0 {
		req.MaxResults = 0
	}
	return req, nil
}

// Search validates req, queries every active provider concurrently and
// replaces the store's flights with the merged result. A search that has
// been superseded by a newer one returns its result flagged Stale and leaves
// the store alone.
func (o *Orchestrator) Search(ctx context.Context, req FlightSearchRequest) (*SearchResult, error) {
	req, err := NormalizeRequest(req)
	if err != nil {
		o.store.RejectSearch(UserMessage(err))
		return nil, err
	}

	gen := o.store.BeginSearch(req)

	result, searchErr := o.fanOut(ctx, req)
	log := o.logger.With("from", req.From, "to", req.To, "depart", req.DepartDate, "generation", gen)

	if searchErr != nil {
		if !o.store.FailSearch(gen, UserMessage(searchErr)) {
			return o.stale(log, result), nil
		}
		log.Warn("search.failed", "error", searchErr.Error())
		return result, searchErr
	}

	if !o.store.CompleteSearch(gen, result.Flights) {
		return o.stale(log, result), nil
	}
	log.Info("search.completed",
		"providers", strings.Join(result.Providers, ","),
		"flights", len(result.Flights),
		"provider_errors", len(result.Errors),
	)
	return result, nil
}

func (o *Orchestrator) stale(log *slog.Logger, result *SearchResult) *SearchResult {
	result.Stale = true
	log.Debug("search.stale_dropped", "flights", len(result.Flights))
	return result
}

func (o *Orchestrator) fanOut(ctx context.Context, req FlightSearchRequest) (*SearchResult, error) {
	result := &SearchResult{
		Query:     req,
		Mode:      o.router.Mode(),
		Flights:   []FlightOffer{},
		FetchedAt: time.Now().UTC(),
	}

	adapters := o.router.ActiveAdapters()
	if len(adapters) == 0 {
		result.Errors = []ProviderError{{
			Provider: "none",
			Kind:     KindNoProviders,
			Reason:   "no active flight providers for current mode",
		}}
		return result, &SearchError{Op: "search", Kind: KindNoProviders, Err: ErrNoProviders}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		flights  []FlightOffer
		provUsed []string
		errs     []ProviderError
		firstErr error
	)

	for _, a := range adapters {
		wg.Add(1)
		go func(adapter FlightAdapter) {
			defer wg.Done()

			done := make(chan struct{})
			var resp *FlightSearchResponse
			var err error

			go func() {
				resp, err = adapter.SearchFlights(ctx, req)
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				mu.Lock()
				errs = append(errs, ProviderError{
					Provider: adapter.Name(),
					Kind:     KindNetwork,
					Reason:   "timeout",
					Fallback: "results from other providers may still be available",
				})
				if firstErr == nil {
					firstErr = &SearchError{Op: "search", Kind: KindNetwork, Provider: adapter.Name(), Err: ctx.Err()}
				}
				mu.Unlock()
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				reason := UserMessage(err)
				if errors.Is(err, context.DeadlineExceeded) {
					reason = "timeout"
				}
				errs = append(errs, ProviderError{
					Provider: adapter.Name(),
					Kind:     kindOf(err),
					Reason:   reason,
				})
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if resp != nil {
				for _, f := range resp.Data {
					if f.Source == "" {
						f.Source = adapter.Name()
					}
					flights = append(flights, f)
				}
			}
			provUsed = append(provUsed, adapter.Name())
		}(a)
	}

	wg.Wait()

	result.Flights = DedupeFlights(flights)
	result.TotalFound = len(result.Flights)
	result.Providers = provUsed
	result.Errors = errs

	if len(provUsed) == 0 && firstErr != nil {
		return result, firstErr
	}
	return result, nil
}

// SearchAirports resolves a keyword against every active provider that can
// look up airports. Short keywords and provider failures yield no results.
func (o *Orchestrator) SearchAirports(ctx context.Context, keyword string) []Airport {
	keyword = strings.TrimSpace(keyword)
	if utf8.RuneCountInString(keyword) < minKeywordLength {
		return []Airport{}
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	seen := map[string]struct{}{}
	out := []Airport{}
	for _, a := range o.router.AirportAdapters() {
		airports, err := a.SearchAirports(ctx, keyword)
		if err != nil {
			o.logger.Warn("airports.search_failed", "provider", a.Name(), "keyword", keyword, "error", err.Error())
			continue
		}
		for _, ap := range airports {
			if _, dup := seen[ap.IATACode]; dup {
				continue
			}
			seen[ap.IATACode] = struct{}{}
			out = append(out, ap)
		}
	}
	return out
}

func kindOf(err error) ErrorKind {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}
	return KindUpstream
}

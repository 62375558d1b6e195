package core

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const defaultDebounce = 300 * time.Millisecond

type LookupState int

const (
	LookupIdle LookupState = iota
	LookupTyping
	LookupSelected
)

func (s LookupState) String() string {
	switch s {
	case LookupTyping:
		return "typing"
	case LookupSelected:
		return "selected"
	default:
		return "idle"
	}
}

type AirportSearcher interface {
	SearchAirports(ctx context.Context, keyword string) []Airport
}

// AirportLookup turns keystrokes into debounced airport searches. Results
// are only delivered for the latest query; a keystroke, selection or clear
// invalidates any pending or in-flight lookup.
type AirportLookup struct {
	searcher  AirportSearcher
	delay     time.Duration
	onResults func([]Airport)
	logger    *slog.Logger

	mu       sync.Mutex
	state    LookupState
	query    string
	results  []Airport
	selected *Airport
	loading  bool
	gen      uint64
	timer    *time.Timer
	cancel   context.CancelFunc
}

type LookupOption func(*AirportLookup)

func WithDebounce(d time.Duration) LookupOption {
	return func(l *AirportLookup) {
		if d > 0 {
			l.delay = d
		}
	}
}

// OnResults registers the callback invoked with every delivered result set.
// It runs on the lookup's timer goroutine.
func OnResults(fn func([]Airport)) LookupOption {
	return func(l *AirportLookup) { l.onResults = fn }
}

func WithLookupLogger(logger *slog.Logger) LookupOption {
	return func(l *AirportLookup) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func NewAirportLookup(searcher AirportSearcher, opts ...LookupOption) *AirportLookup {
	l := &AirportLookup{
		searcher:  searcher,
		delay:     defaultDebounce,
		onResults: func([]Airport) {},
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetQuery records a keystroke. While an airport is selected only the text
// changes; Clear must be called before lookups resume.
func (l *AirportLookup) SetQuery(q string) {
	l.mu.Lock()
	l.query = q
	if l.state == LookupSelected {
		l.mu.Unlock()
		return
	}
	l.invalidateLocked()

	if utf8.RuneCountInString(strings.TrimSpace(q)) < minKeywordLength {
		l.state = LookupIdle
		hadResults := len(l.results) > 0
		l.results = nil
		cb := l.onResults
		l.mu.Unlock()
		if hadResults {
			cb([]Airport{})
		}
		return
	}

	l.state = LookupTyping
	gen := l.gen
	l.timer = time.AfterFunc(l.delay, func() { l.fire(gen) })
	l.mu.Unlock()
}

func (l *AirportLookup) Select(a Airport) {
	l.mu.Lock()
	l.invalidateLocked()
	l.state = LookupSelected
	l.selected = &a
	l.query = a.Label()
	l.results = nil
	l.mu.Unlock()
}

func (l *AirportLookup) Clear() {
	l.mu.Lock()
	l.invalidateLocked()
	l.state = LookupIdle
	l.selected = nil
	l.query = ""
	l.results = nil
	l.mu.Unlock()
}

// Close stops any pending or in-flight lookup.
func (l *AirportLookup) Close() {
	l.mu.Lock()
	l.invalidateLocked()
	l.mu.Unlock()
}

func (l *AirportLookup) State() LookupState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *AirportLookup) Query() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

func (l *AirportLookup) Results() []Airport {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Airport(nil), l.results...)
}

func (l *AirportLookup) Selected() (Airport, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.selected == nil {
		return Airport{}, false
	}
	return *l.selected, true
}

func (l *AirportLookup) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

func (l *AirportLookup) invalidateLocked() {
	l.gen++
	l.loading = false
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *AirportLookup) fire(gen uint64) {
	l.mu.Lock()
	if gen != l.gen || l.state != LookupTyping {
		l.mu.Unlock()
		return
	}
	query := strings.TrimSpace(l.query)
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.loading = true
	l.mu.Unlock()

	l.logger.Debug("lookup.fired", "query", query, "generation", gen)
	results := l.searcher.SearchAirports(ctx, query)

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		cancel()
		l.logger.Debug("lookup.stale_dropped", "query", query, "generation", gen)
		return
	}
	l.cancel = nil
	l.loading = false
	if results == nil {
		results = []Airport{}
	}
	l.results = results
	cb := l.onResults
	l.mu.Unlock()
	cancel()

	cb(append([]Airport(nil), results...))
}

package prefs

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harshit-mishr/sky-scrapper/internal/core"
	"github.com/harshit-mishr/sky-scrapper/internal/currency"
	"github.com/harshit-mishr/sky-scrapper/internal/kv"
)

const (
	Bucket = "preferences"

	KeyCurrency = "preferredCurrency"
	KeyDarkMode = "darkMode"
	KeyRecent   = "sky_scrapper_recent_searches"

	MaxRecentSearches = 5
)

// RecentSearch is a saved query shown for one-keystroke repeat searches.
type RecentSearch struct {
	core.FlightSearchRequest
	ID              string `json:"id"`
	Timestamp       int64  `json:"timestamp"`
	OriginName      string `json:"originName,omitempty"`
	DestinationName string `json:"destinationName,omitempty"`
}

func (r RecentSearch) SavedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

type Prefs struct {
	store  *kv.Store
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

func New(store *kv.Store, logger *slog.Logger) *Prefs {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Prefs{store: store, logger: logger, now: time.Now}
}

// Currency returns the stored display currency, or fallback when nothing
// valid is stored.
func (p *Prefs) Currency(fallback currency.Currency) currency.Currency {
	raw, err := p.store.Get(Bucket, KeyCurrency)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			p.logger.Warn("prefs.read_failed", "key", KeyCurrency, "error", err.Error())
		}
		return fallback
	}
	c, err := currency.Parse(string(raw))
	if err != nil {
		p.logger.Warn("prefs.invalid_currency", "value", string(raw))
		return fallback
	}
	return c
}

func (p *Prefs) SetCurrency(c currency.Currency) error {
	if !currency.Valid(c) {
		return currency.ErrUnsupported
	}
	return p.store.Put(Bucket, KeyCurrency, []byte(c))
}

// DarkMode reports the stored theme. ok is false when the user never chose
// one and the terminal default should apply.
func (p *Prefs) DarkMode() (dark bool, ok bool) {
	raw, err := p.store.Get(Bucket, KeyDarkMode)
	if err != nil {
		return false, false
	}
	v, err := strconv.ParseBool(string(raw))
	if err != nil {
		return false, false
	}
	return v, true
}

func (p *Prefs) SetDarkMode(dark bool) error {
	return p.store.Put(Bucket, KeyDarkMode, []byte(strconv.FormatBool(dark)))
}

func (p *Prefs) ClearDarkMode() error {
	return p.store.Delete(Bucket, KeyDarkMode)
}

// RecentSearches returns the saved searches, newest first. Unreadable data is
// logged and treated as empty.
func (p *Prefs) RecentSearches() []RecentSearch {
	var out []RecentSearch
	if err := p.store.GetJSON(Bucket, KeyRecent, &out); err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			p.logger.Warn("prefs.recent_unreadable", "error", err.Error())
		}
		return []RecentSearch{}
	}
	if out == nil {
		out = []RecentSearch{}
	}
	return out
}

// SaveSearch prepends req, drops older entries for the same route and keeps
// at most MaxRecentSearches.
func (p *Prefs) SaveSearch(req core.FlightSearchRequest, originName, destinationName string) (RecentSearch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := RecentSearch{
		FlightSearchRequest: req,
		ID:                  uuid.NewString(),
		Timestamp:           p.now().UnixMilli(),
		OriginName:          originName,
		DestinationName:     destinationName,
	}

	updated := []RecentSearch{entry}
	for _, s := range p.RecentSearches() {
		if s.From == req.From && s.To == req.To {
			continue
		}
		updated = append(updated, s)
	}
	if len(updated) > MaxRecentSearches {
		updated = updated[:MaxRecentSearches]
	}

	if err := p.store.PutJSON(Bucket, KeyRecent, updated); err != nil {
		return RecentSearch{}, err
	}
	return entry, nil
}

func (p *Prefs) ClearRecentSearches() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.Delete(Bucket, KeyRecent)
}

package prefs

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/harshit-mishr/sky-scrapper/internal/core"
	"github.com/harshit-mishr/sky-scrapper/internal/currency"
	"github.com/harshit-mishr/sky-scrapper/internal/kv"
)

func newTestPrefs(t *testing.T) (*Prefs, *kv.Store) {
	t.Helper()
	store, err := kv.Open(t.TempDir(), Bucket)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, nil), store
}

func TestCurrency(t *testing.T) {
	p, store := newTestPrefs(t)

	if got := p.Currency(currency.USD); got != currency.USD {
		t.Errorf("expected fallback USD, got %s", got)
	}
	if err := p.SetCurrency(currency.JPY); err != nil {
		t.Fatal(err)
	}
	if got := p.Currency(currency.USD); got != currency.JPY {
		t.Errorf("expected JPY, got %s", got)
	}
	if err := p.SetCurrency("XYZ"); err == nil {
		t.Error("expected error for unsupported currency")
	}

	_ = store.Put(Bucket, KeyCurrency, []byte("BTC"))
	if got := p.Currency(currency.USD); got != currency.USD {
		t.Errorf("expected fallback for invalid stored value, got %s", got)
	}
}

func TestDarkMode(t *testing.T) {
	p, _ := newTestPrefs(t)

	if _, ok := p.DarkMode(); ok {
		t.Error("expected no stored theme")
	}
	_ = p.SetDarkMode(true)
	if dark, ok := p.DarkMode(); !ok || !dark {
		t.Errorf("expected dark mode, got %v %v", dark, ok)
	}
	_ = p.SetDarkMode(false)
	if dark, ok := p.DarkMode(); !ok || dark {
		t.Errorf("expected light mode, got %v %v", dark, ok)
	}
	_ = p.ClearDarkMode()
	if _, ok := p.DarkMode(); ok {
		t.Error("expected theme cleared")
	}
}

func TestSaveSearch_PrependsAndDedupes(t *testing.T) {
	p, _ := newTestPrefs(t)
	clock := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	_, _ = p.SaveSearch(core.FlightSearchRequest{From: "JFK", To: "LHR", DepartDate: "2026-06-12"}, "JFK Intl", "Heathrow")
	_, _ = p.SaveSearch(core.FlightSearchRequest{From: "SFO", To: "NRT", DepartDate: "2026-07-01"}, "", "")
	latest, err := p.SaveSearch(core.FlightSearchRequest{From: "JFK", To: "LHR", DepartDate: "2026-06-20"}, "JFK Intl", "Heathrow")
	if err != nil {
		t.Fatal(err)
	}

	got := p.RecentSearches()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries after dedupe, got %d", len(got))
	}
	if got[0].ID != latest.ID || got[0].DepartDate != "2026-06-20" {
		t.Errorf("expected newest entry first, got %+v", got[0])
	}
	if got[1].From != "SFO" {
		t.Errorf("expected SFO second, got %s", got[1].From)
	}
	if _, err := uuid.Parse(latest.ID); err != nil {
		t.Errorf("expected uuid id, got %q", latest.ID)
	}
	if got[0].OriginName != "JFK Intl" || got[0].SavedAt().IsZero() {
		t.Errorf("expected names and timestamp, got %+v", got[0])
	}
}

func TestSaveSearch_KeepsFive(t *testing.T) {
	p, _ := newTestPrefs(t)
	for i := 0; i < 7; i++ {
		_, _ = p.SaveSearch(core.FlightSearchRequest{From: "JFK", To: fmt.Sprintf("D%02d", i), DepartDate: "2026-06-12"}, "", "")
	}

	got := p.RecentSearches()
	if len(got) != MaxRecentSearches {
		t.Fatalf("expected %d entries, got %d", MaxRecentSearches, len(got))
	}
	if got[0].To != "D06" || got[4].To != "D02" {
		t.Errorf("expected newest five, got %s..%s", got[0].To, got[4].To)
	}
}

func TestRecentSearches_CorruptDataIsEmpty(t *testing.T) {
	p, store := newTestPrefs(t)
	_ = store.Put(Bucket, KeyRecent, []byte("not json"))

	if got := p.RecentSearches(); len(got) != 0 {
		t.Errorf("expected empty list, got %+v", got)
	}
	if _, err := p.SaveSearch(core.FlightSearchRequest{From: "JFK", To: "LHR"}, "", ""); err != nil {
		t.Errorf("save must recover from corrupt data: %v", err)
	}
}

func TestClearRecentSearches(t *testing.T) {
	p, _ := newTestPrefs(t)
	_, _ = p.SaveSearch(core.FlightSearchRequest{From: "JFK", To: "LHR"}, "", "")

	if err := p.ClearRecentSearches(); err != nil {
		t.Fatal(err)
	}
	if got := p.RecentSearches(); len(got) != 0 {
		t.Errorf("expected no entries, got %d", len(got))
	}
}

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harshit-mishr/sky-scrapper/internal/core"
	"github.com/harshit-mishr/sky-scrapper/internal/kv"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	store, err := kv.Open(t.TempDir(), Bucket)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store)
}

func TestCache_SetAndGet(t *testing.T) {
	c := newTestCache(t)

	err := c.Set("test-key", []byte(`{"hello":"world"}`))
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}

	data, ok := c.Get("test-key", 5*time.Minute)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(data) != `{"hello":"world"}` {
		t.Errorf("unexpected data: %s", string(data))
	}
}

func TestCache_RejectsNonJSON(t *testing.T) {
	c := newTestCache(t)
	if err := c.Set("k", []byte("plain")); err == nil {
		t.Error("expected error for non-JSON value")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := newTestCache(t)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set("expire-key", []byte(`1`))

	if _, ok := c.Get("expire-key", 0); ok {
		t.Error("expected cache miss due to zero TTL")
	}
	now = now.Add(9 * time.Minute)
	if _, ok := c.Get("expire-key", 10*time.Minute); !ok {
		t.Error("expected hit inside TTL")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("expire-key", 10*time.Minute); ok {
		t.Error("expected miss after TTL")
	}
}

func TestCache_Clear(t *testing.T) {
	c := newTestCache(t)
	_ = c.Set("k1", []byte(`"v1"`))
	_ = c.Set("k2", []byte(`"v2"`))
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}

	err := c.Clear()
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	_, ok1 := c.Get("k1", 5*time.Minute)
	_, ok2 := c.Get("k2", 5*time.Minute)
	if ok1 || ok2 {
		t.Error("expected all keys cleared")
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	k1 := CacheKey("flights", "YUL", "CDG", "2026-06-12")
	k2 := CacheKey("flights", "YUL", "CDG", "2026-06-12")
	if k1 != k2 {
		t.Error("cache keys should be deterministic")
	}

	k3 := CacheKey("flights", "YUL", "CDG", "2026-06-13")
	if k1 == k3 {
		t.Error("different inputs should produce different keys")
	}
}

type countingAdapter struct {
	calls    int
	airports int
	err      error
}

func (a *countingAdapter) Name() string            { return "mock_flights" }
func (a *countingAdapter) Tier() core.ProviderTier { return core.TierEasySignup }
func (a *countingAdapter) Capabilities() []core.Capability {
	return []core.Capability{core.CapFlightsSearch}
}
func (a *countingAdapter) Available() (bool, string) { return true, "" }

func (a *countingAdapter) SearchFlights(ctx context.Context, req core.FlightSearchRequest) (*core.FlightSearchResponse, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &core.FlightSearchResponse{
		Data: []core.FlightOffer{{ID: "1", Price: core.Price{Total: "199.00", Currency: "USD"}}},
		Meta: &core.SearchMeta{Count: 1},
	}, nil
}

func (a *countingAdapter) SearchAirports(ctx context.Context, keyword string) ([]core.Airport, error) {
	a.airports++
	return nil, nil
}

func TestWrapFlights_ServesRepeatFromCache(t *testing.T) {
	inner := &countingAdapter{}
	a := WrapFlights(inner, newTestCache(t), time.Minute, nil)
	req := core.FlightSearchRequest{From: "JFK", To: "LHR", DepartDate: "2026-06-12", Adults: 1}

	for i := 0; i < 3; i++ {
		resp, err := a.SearchFlights(context.Background(), req)
		if err != nil {
			t.Fatal(err)
		}
		if len(resp.Data) != 1 || resp.Data[0].Price.Total != "199.00" {
			t.Fatalf("unexpected response %+v", resp)
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", inner.calls)
	}

	req.DepartDate = "2026-06-13"
	_, _ = a.SearchFlights(context.Background(), req)
	if inner.calls != 2 {
		t.Errorf("expected a miss for a different date, got %d calls", inner.calls)
	}

	_, _ = a.SearchAirports(context.Background(), "lon")
	_, _ = a.SearchAirports(context.Background(), "lon")
	if inner.airports != 2 {
		t.Errorf("airport lookups must not be cached, got %d calls", inner.airports)
	}
}

func TestWrapFlights_ErrorsNotCached(t *testing.T) {
	inner := &countingAdapter{err: errors.New("boom")}
	a := WrapFlights(inner, newTestCache(t), time.Minute, nil)
	req := core.FlightSearchRequest{From: "JFK", To: "LHR", DepartDate: "2026-06-12"}

	_, _ = a.SearchFlights(context.Background(), req)
	inner.err = nil
	if _, err := a.SearchFlights(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("expected retry after failure, got %d calls", inner.calls)
	}
}

func TestWrapFlights_DisabledReturnsAdapter(t *testing.T) {
	inner := &countingAdapter{}
	if got := WrapFlights(inner, nil, time.Minute, nil); got != inner {
		t.Error("expected the adapter unchanged without a cache")
	}
}

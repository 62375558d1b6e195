package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/harshit-mishr/sky-scrapper/internal/core"
	"github.com/harshit-mishr/sky-scrapper/internal/kv"
)

const Bucket = "search_cache"

type Entry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Cache keeps search responses in the local database so an identical search
// inside the TTL does not hit the provider again.
type Cache struct {
	store *kv.Store
	now   func() time.Time
}

func New(store *kv.Store) *Cache {
	return &Cache{store: store, now: time.Now}
}

func (c *Cache) Get(key string, ttl time.Duration) ([]byte, bool) {
	var entry Entry
	if err := c.store.GetJSON(Bucket, hashKey(key), &entry); err != nil {
		return nil, false
	}
	if c.now().Sub(entry.CreatedAt) >= ttl {
		return nil, false
	}
	return entry.Data, true
}

func (c *Cache) Set(key string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("cache: value for %q is not valid JSON", key)
	}
	entry := Entry{
		Key:       key,
		Data:      data,
		CreatedAt: c.now().UTC(),
	}
	return c.store.PutJSON(Bucket, hashKey(key), entry)
}

func (c *Cache) Clear() error {
	return c.store.Clear(Bucket)
}

func (c *Cache) Len() int {
	n, _ := c.store.Count(Bucket)
	return n
}

func hashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

func CacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte("|"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FlightsKey identifies a flight search for one provider.
func FlightsKey(provider string, req core.FlightSearchRequest) string {
	return CacheKey("flights", provider, req.From, req.To, req.DepartDate, req.ReturnDate,
		strconv.Itoa(req.Adults), strconv.Itoa(req.Children), strconv.Itoa(req.Infants),
		strconv.Itoa(req.MaxResults))
}

// CachedAdapter serves repeated flight searches from the cache. Airport
// lookups always go to the wrapped adapter.
type CachedAdapter struct {
	core.FlightAdapter
	cache  *Cache
	ttl    time.Duration
	logger *slog.Logger
}

func WrapFlights(adapter core.FlightAdapter, c *Cache, ttl time.Duration, logger *slog.Logger) core.FlightAdapter {
	if c == nil || ttl <= 0 {
		return adapter
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &CachedAdapter{FlightAdapter: adapter, cache: c, ttl: ttl, logger: logger}
}

func (a *CachedAdapter) SearchFlights(ctx context.Context, req core.FlightSearchRequest) (*core.FlightSearchResponse, error) {
	key := FlightsKey(a.Name(), req)

	if data, ok := a.cache.Get(key, a.ttl); ok {
		var resp core.FlightSearchResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			a.logger.Debug("cache.hit", "provider", a.Name(), "offers", len(resp.Data))
			return &resp, nil
		}
	}

	resp, err := a.FlightAdapter.SearchFlights(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := a.cache.Set(key, data); err != nil {
			a.logger.Warn("cache.write_failed", "provider", a.Name(), "error", err.Error())
		}
	}
	return resp, nil
}

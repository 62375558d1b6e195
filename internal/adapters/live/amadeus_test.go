package live

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harshit-mishr/sky-scrapper/internal/config"
	"github.com/harshit-mishr/sky-scrapper/internal/core"
)

const offersBody = `{
  "meta": {"count": 2},
  "data": [
    {
      "id": "1",
      "price": {"total": "512.40", "currency": "USD"},
      "itineraries": [{"duration": "PT7H5M", "segments": [
        {"departure": {"iataCode": "JFK", "at": "2026-06-12T18:30:00"},
         "arrival": {"iataCode": "LHR", "at": "2026-06-13T06:35:00"},
         "carrierCode": "BA", "number": "178", "duration": "PT7H5M"}
      ]}],
      "validatingAirlineCodes": ["BA"]
    },
    {
      "id": "2",
      "price": {"total": "389.00", "currency": "USD"},
      "itineraries": [{"duration": "PT10H20M", "segments": [
        {"departure": {"iataCode": "JFK", "at": "2026-06-12T09:00:00"}, "arrival": {"iataCode": "DUB", "at": "2026-06-12T20:10:00"}, "carrierCode": "EI", "number": "104"},
        {"departure": {"iataCode": "DUB", "at": "2026-06-12T21:30:00"}, "arrival": {"iataCode": "LHR", "at": "2026-06-12T22:50:00"}, "carrierCode": "EI", "number": "166"}
      ]}],
      "validatingAirlineCodes": ["EI"]
    }
  ]
}`

type fakeAmadeus struct {
	tokenCalls  atomic.Int32
	tokenStatus int
	lastQuery   atomic.Value

	mu     sync.Mutex
	status int
	body   string
}

func (f *fakeAmadeus) respond(status int, body string) {
	f.mu.Lock()
	f.status = status
	f.body = body
	f.mu.Unlock()
}

func (f *fakeAmadeus) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" || r.Form.Get("client_id") != "test-key" {
			t.Errorf("unexpected token form: %v", r.Form)
		}
		if f.tokenStatus != 0 {
			w.WriteHeader(f.tokenStatus)
			fmt.Fprint(w, `{"error":"invalid_client","error_description":"Client credentials are invalid"}`)
			return
		}
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":1799}`, f.tokenCalls.Load())
	})
	serve := func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-") {
			t.Errorf("missing bearer token: %q", r.Header.Get("Authorization"))
		}
		f.lastQuery.Store(r.URL.Query().Encode())
		f.mu.Lock()
		status, body := f.status, f.body
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
		}
		fmt.Fprint(w, body)
	}
	mux.HandleFunc(offersPath, serve)
	mux.HandleFunc(locationsPath, serve)
	return mux
}

func newTestAdapter(t *testing.T, f *fakeAmadeus) *AmadeusAdapter {
	t.Helper()
	t.Setenv(config.EnvAmadeusKey, "test-key")
	t.Setenv(config.EnvAmadeusSecret, "test-secret")

	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewAmadeusAdapter(config.AmadeusConfig{BaseURL: srv.URL}, srv.Client(), nil)
}

func searchReq() core.FlightSearchRequest {
	return core.FlightSearchRequest{From: "JFK", To: "LHR", DepartDate: "2026-06-12"}
}

func TestSearchFlights_DecodesOffers(t *testing.T) {
	f := &fakeAmadeus{body: offersBody}
	a := newTestAdapter(t, f)

	resp, err := a.SearchFlights(context.Background(), searchReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Data) != 2 || resp.Meta == nil || resp.Meta.Count != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if core.StopsCount(resp.Data[1]) != 1 {
		t.Errorf("expected one stop for offer 2, got %d", core.StopsCount(resp.Data[1]))
	}
	if resp.Data[0].Source != "amadeus" {
		t.Errorf("expected source stamped, got %q", resp.Data[0].Source)
	}

	q := f.lastQuery.Load().(string)
	for _, want := range []string{"currencyCode=USD", "max=250", "adults=1", "originLocationCode=JFK"} {
		if !strings.Contains(q, want) {
			t.Errorf("expected %s in query %s", want, q)
		}
	}
	if strings.Contains(q, "returnDate") || strings.Contains(q, "children") {
		t.Errorf("optional params must be omitted when unset: %s", q)
	}
}

func TestSearchFlights_OptionalParams(t *testing.T) {
	f := &fakeAmadeus{body: `{"data":[]}`}
	a := newTestAdapter(t, f)

	req := searchReq()
	req.ReturnDate = "2026-06-20"
	req.Adults = 2
	req.Children = 1
	req.Infants = 1
	req.MaxResults = 20
	if _, err := a.SearchFlights(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	q := f.lastQuery.Load().(string)
	for _, want := range []string{"returnDate=2026-06-20", "adults=2", "children=1", "infants=1", "max=20"} {
		if !strings.Contains(q, want) {
			t.Errorf("expected %s in query %s", want, q)
		}
	}
}

func TestAccessToken_CachedUntilExpiry(t *testing.T) {
	f := &fakeAmadeus{body: `{"data":[]}`}
	a := newTestAdapter(t, f)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := a.SearchFlights(context.Background(), searchReq()); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.tokenCalls.Load(); got != 1 {
		t.Errorf("expected 1 token exchange, got %d", got)
	}

	now = now.Add(26 * time.Minute)
	if _, err := a.SearchFlights(context.Background(), searchReq()); err != nil {
		t.Fatal(err)
	}
	if got := f.tokenCalls.Load(); got != 2 {
		t.Errorf("expected token refresh after 25 minutes, got %d exchanges", got)
	}
}

func TestSearchFlights_ErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   core.ErrorKind
		detail string
	}{
		{http.StatusBadRequest, `{"errors":[{"status":400,"code":477,"title":"INVALID FORMAT","detail":"departureDate must be in the future"}]}`, core.KindInvalidParams, "departureDate must be in the future"},
		{http.StatusUnauthorized, `{"errors":[{"title":"Invalid access token"}]}`, core.KindAuth, ""},
		{http.StatusForbidden, `{}`, core.KindForbidden, ""},
		{http.StatusTooManyRequests, `{}`, core.KindRateLimited, ""},
		{http.StatusInternalServerError, `{"error_description":"backend unavailable"}`, core.KindUpstream, "backend unavailable"},
		{http.StatusBadGateway, `not json`, core.KindUpstream, "unexpected status 502"},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			a := newTestAdapter(t, &fakeAmadeus{status: tc.status, body: tc.body})

			_, err := a.SearchFlights(context.Background(), searchReq())
			if !core.IsKind(err, tc.kind) {
				t.Fatalf("expected kind %s, got %v", tc.kind, err)
			}
			if tc.detail != "" && !strings.Contains(err.Error(), tc.detail) {
				t.Errorf("expected detail %q in %v", tc.detail, err)
			}
		})
	}
}

func TestSearchFlights_UnauthorizedDropsToken(t *testing.T) {
	f := &fakeAmadeus{status: http.StatusUnauthorized, body: `{}`}
	a := newTestAdapter(t, f)

	_, _ = a.SearchFlights(context.Background(), searchReq())
	f.respond(0, `{"data":[]}`)
	if _, err := a.SearchFlights(context.Background(), searchReq()); err != nil {
		t.Fatal(err)
	}
	if got := f.tokenCalls.Load(); got != 2 {
		t.Errorf("expected a fresh token after 401, got %d exchanges", got)
	}
}

func TestAccessToken_Rejected(t *testing.T) {
	a := newTestAdapter(t, &fakeAmadeus{tokenStatus: http.StatusUnauthorized})

	_, err := a.SearchFlights(context.Background(), searchReq())
	if !core.IsKind(err, core.KindAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Client credentials are invalid") {
		t.Errorf("expected error_description detail, got %v", err)
	}
}

func TestSearchFlights_MissingCredentials(t *testing.T) {
	f := &fakeAmadeus{}
	a := newTestAdapter(t, f)
	t.Setenv(config.EnvAmadeusSecret, "")

	if ok, _ := a.Available(); ok {
		t.Error("expected adapter unavailable without secret")
	}
	_, err := a.SearchFlights(context.Background(), searchReq())
	if !core.IsKind(err, core.KindMissingCredentials) {
		t.Fatalf("expected missing credentials, got %v", err)
	}
	if f.tokenCalls.Load() != 0 {
		t.Error("expected no token request")
	}
}

func TestSearchFlights_NetworkError(t *testing.T) {
	t.Setenv(config.EnvAmadeusKey, "test-key")
	t.Setenv(config.EnvAmadeusSecret, "test-secret")
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	a := NewAmadeusAdapter(config.AmadeusConfig{BaseURL: base}, &http.Client{Timeout: time.Second}, nil)
	_, err := a.SearchFlights(context.Background(), searchReq())
	if !core.IsKind(err, core.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestSearchAirports(t *testing.T) {
	f := &fakeAmadeus{body: `{"data":[
		{"iataCode":"LHR","name":"HEATHROW","address":{"cityName":"LONDON"}},
		{"iataCode":"LGW","name":"GATWICK","address":{"cityName":"LONDON"}}
	]}`}
	a := newTestAdapter(t, f)

	got, err := a.SearchAirports(context.Background(), "lon")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].IATACode != "LHR" || got[0].CityName != "LONDON" {
		t.Errorf("unexpected airports: %+v", got)
	}

	q := f.lastQuery.Load().(string)
	for _, want := range []string{"keyword=LON", "subType=AIRPORT", "page%5Blimit%5D=10"} {
		if !strings.Contains(q, want) {
			t.Errorf("expected %s in query %s", want, q)
		}
	}

	short, err := a.SearchAirports(context.Background(), "l")
	if err != nil || len(short) != 0 {
		t.Errorf("expected empty result for short keyword, got %v %v", short, err)
	}
}

func TestErrorDetail(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"errors":[{"detail":"bad date"}]}`, "bad date"},
		{`{"error_description":"invalid client"}`, "invalid client"},
		{`{"errors":[{"title":"SYSTEM ERROR"}]}`, "SYSTEM ERROR"},
		{`{"error":"invalid_grant"}`, "invalid_grant"},
		{`<html>gateway</html>`, ""},
		{`{"errors":[]}`, ""},
	}
	for _, tc := range cases {
		if got := errorDetail([]byte(tc.body)); got != tc.want {
			t.Errorf("errorDetail(%s) = %q, want %q", tc.body, got, tc.want)
		}
	}
}

package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PaesslerAG/jsonpath"
	"github.com/harshit-mishr/sky-scrapper/internal/config"
	"github.com/harshit-mishr/sky-scrapper/internal/core"
)

const (
	tokenPath     = "/v1/security/oauth2/token"
	locationsPath = "/v1/reference-data/locations"
	offersPath    = "/v2/shopping/flight-offers"

	maxOffers       = 250
	airportLimit    = 10
	maxBodyBytes    = 8 << 20
	defaultTokenTTL = 25 * time.Minute
)

// AmadeusAdapter talks to the Amadeus self-service REST API. Credentials are
// read from the environment on every token exchange so a rotated key is
// picked up without a restart.
type AmadeusAdapter struct {
	baseURL  string
	tokenTTL time.Duration
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewAmadeusAdapter(cfg config.AmadeusConfig, client *http.Client, logger *slog.Logger) *AmadeusAdapter {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = config.DefaultAmadeusBaseURL
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &AmadeusAdapter{
		baseURL:  base,
		tokenTTL: ttl,
		client:   client,
		logger:   logger,
		now:      time.Now,
	}
}

func (a *AmadeusAdapter) Name() string            { return "amadeus" }
func (a *AmadeusAdapter) Tier() core.ProviderTier { return core.TierEasySignup }
func (a *AmadeusAdapter) Capabilities() []core.Capability {
	return []core.Capability{core.CapFlightsSearch, core.CapAirportsSearch}
}

func (a *AmadeusAdapter) Available() (bool, string) {
	key, secret := credentials()
	if key == "" || secret == "" {
		return false, fmt.Sprintf("set %s and %s (sign up free at https://developers.amadeus.com)",
			config.EnvAmadeusKey, config.EnvAmadeusSecret)
	}
	return true, ""
}

func credentials() (string, string) {
	return strings.TrimSpace(os.Getenv(config.EnvAmadeusKey)), strings.TrimSpace(os.Getenv(config.EnvAmadeusSecret))
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns the cached bearer token or exchanges the client
// credentials for a new one.
func (a *AmadeusAdapter) accessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && a.now().Before(a.tokenExpiry) {
		return a.token, nil
	}

	key, secret := credentials()
	if key == "" || secret == "" {
		return "", &core.SearchError{
			Op:       "amadeus.token",
			Kind:     core.KindMissingCredentials,
			Provider: a.Name(),
			Err:      core.ErrMissingCredentials,
		}
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {key},
		"client_secret": {secret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("amadeus: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := a.do(req)
	if err != nil {
		return "", a.networkError("amadeus.token", err)
	}
	if status != http.StatusOK {
		return "", a.statusError("amadeus.token", status, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &core.SearchError{Op: "amadeus.token", Kind: core.KindUpstream, Provider: a.Name(), Detail: "malformed token response", Err: err}
	}
	if tr.AccessToken == "" {
		return "", &core.SearchError{Op: "amadeus.token", Kind: core.KindAuth, Provider: a.Name(), Detail: "no access token received"}
	}

	a.token = tr.AccessToken
	a.tokenExpiry = a.now().Add(a.tokenTTL)
	a.logger.Debug("amadeus.token_refreshed", "expires_at", a.tokenExpiry.UTC().Format(time.RFC3339))
	return a.token, nil
}

func (a *AmadeusAdapter) dropToken() {
	a.mu.Lock()
	a.token = ""
	a.tokenExpiry = time.Time{}
	a.mu.Unlock()
}

type locationsResponse struct {
	Data []struct {
		IATACode string `json:"iataCode"`
		Name     string `json:"name"`
		Address  struct {
			CityName string `json:"cityName"`
		} `json:"address"`
	} `json:"data"`
}

func (a *AmadeusAdapter) SearchAirports(ctx context.Context, keyword string) ([]core.Airport, error) {
	keyword = strings.TrimSpace(keyword)
	if utf8.RuneCountInString(keyword) < 2 {
		return []core.Airport{}, nil
	}

	q := url.Values{}
	q.Set("subType", "AIRPORT")
	q.Set("keyword", strings.ToUpper(keyword))
	q.Set("page[limit]", strconv.Itoa(airportLimit))

	body, err := a.get(ctx, "amadeus.search_airports", locationsPath, q)
	if err != nil {
		return nil, err
	}

	var lr locationsResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, &core.SearchError{Op: "amadeus.search_airports", Kind: core.KindUpstream, Provider: a.Name(), Detail: "malformed locations response", Err: err}
	}

	out := make([]core.Airport, 0, len(lr.Data))
	for _, d := range lr.Data {
		out = append(out, core.Airport{IATACode: d.IATACode, Name: d.Name, CityName: d.Address.CityName})
	}
	return out, nil
}

func (a *AmadeusAdapter) SearchFlights(ctx context.Context, req core.FlightSearchRequest) (*core.FlightSearchResponse, error) {
	adults := req.Adults
	if adults < 1 {
		adults = 1
	}
	limit := maxOffers
	if req.MaxResults > 0 && req.MaxResults < maxOffers {
		limit = req.MaxResults
	}

	q := url.Values{}
	q.Set("originLocationCode", req.From)
	q.Set("destinationLocationCode", req.To)
	q.Set("departureDate", req.DepartDate)
	q.Set("adults", strconv.Itoa(adults))
	q.Set("currencyCode", "USD")
	q.Set("max", strconv.Itoa(limit))
	if req.ReturnDate != "" {
		q.Set("returnDate", req.ReturnDate)
	}
	if req.Children > 0 {
		q.Set("children", strconv.Itoa(req.Children))
	}
	if req.Infants > 0 {
		q.Set("infants", strconv.Itoa(req.Infants))
	}

	body, err := a.get(ctx, "amadeus.search_flights", offersPath, q)
	if err != nil {
		return nil, err
	}

	var resp core.FlightSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &core.SearchError{Op: "amadeus.search_flights", Kind: core.KindUpstream, Provider: a.Name(), Detail: "malformed flight offers response", Err: err}
	}
	if resp.Data == nil {
		resp.Data = []core.FlightOffer{}
	}
	for i := range resp.Data {
		resp.Data[i].Source = a.Name()
	}

	a.logger.Info("amadeus.search_flights",
		"from", req.From,
		"to", req.To,
		"depart", req.DepartDate,
		"offers", len(resp.Data),
	)
	return &resp, nil
}

// get performs an authorized GET and maps every non-200 outcome to a
// SearchError.
func (a *AmadeusAdapter) get(ctx context.Context, op, path string, q url.Values) ([]byte, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("amadeus: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	status, body, err := a.do(req)
	if err != nil {
		return nil, a.networkError(op, err)
	}
	if status == http.StatusUnauthorized {
		a.dropToken()
	}
	if status != http.StatusOK {
		return nil, a.statusError(op, status, body)
	}
	return body, nil
}

func (a *AmadeusAdapter) do(req *http.Request) (int, []byte, error) {
	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}
	a.logger.Debug("amadeus.http",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp.StatusCode, body, nil
}

func (a *AmadeusAdapter) networkError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &core.SearchError{Op: op, Kind: core.KindNetwork, Provider: a.Name(), Err: err}
}

func (a *AmadeusAdapter) statusError(op string, status int, body []byte) error {
	detail := errorDetail(body)
	kind := core.KindUpstream
	switch status {
	case http.StatusBadRequest:
		kind = core.KindInvalidParams
		if op == "amadeus.token" {
			kind = core.KindAuth
		}
	case http.StatusUnauthorized:
		kind = core.KindAuth
	case http.StatusForbidden:
		kind = core.KindForbidden
	case http.StatusTooManyRequests:
		kind = core.KindRateLimited
	}
	if kind == core.KindUpstream && detail == "" {
		detail = fmt.Sprintf("unexpected status %d", status)
	}

	a.logger.Warn("amadeus.request_failed", "op", op, "status", status, "kind", string(kind), "detail", detail)
	return &core.SearchError{
		Op:       op,
		Kind:     kind,
		Provider: a.Name(),
		Detail:   detail,
		Err:      fmt.Errorf("status %d", status),
	}
}

var detailPaths = []string{
	"$.errors[0].detail",
	"$.error_description",
	"$.errors[0].title",
	"$.error",
}

// errorDetail pulls the most specific message out of an Amadeus error body.
func errorDetail(body []byte) string {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}
	for _, expr := range detailPaths {
		v, err := jsonpath.Get(expr, doc)
		if err != nil {
			continue
		}
		if s := stringValue(v); s != "" {
			return s
		}
	}
	return ""
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		if len(t) > 0 {
			return stringValue(t[0])
		}
	}
	return ""
}

package core

import (
	"context"
	"time"

	"github.com/harshit-mishr/sky-scrapper/internal/config"
)

type Capability string

const (
	CapFlightsSearch  Capability = "flights.search"
	CapAirportsSearch Capability = "airports.search"
)

type ProviderTier string

const (
	TierEasySignup      ProviderTier = "easySignup"
	TierPartnerRequired ProviderTier = "partnerRequired"
	TierEnterpriseOnly  ProviderTier = "enterpriseOnly"
)

type FlightSearchRequest struct {
	From       string `json:"originLocationCode"`
	To         string `json:"destinationLocationCode"`
	DepartDate string `json:"departureDate"`
	ReturnDate string `json:"returnDate,omitempty"`
	Adults     int    `json:"adults,omitempty"`
	Children   int    `json:"children,omitempty"`
	Infants    int    `json:"infants,omitempty"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type Airport struct {
	IATACode string `json:"iataCode"`
	Name     string `json:"name"`
	CityName string `json:"cityName,omitempty"`
}

// Label is the text shown once an airport has been picked.
func (a Airport) Label() string {
	if a.Name == "" {
		return a.IATACode
	}
	return a.IATACode + " - " + a.Name
}

type Endpoint struct {
	IATACode string `json:"iataCode"`
	At       string `json:"at"`
}

type Segment struct {
	Departure   Endpoint `json:"departure"`
	Arrival     Endpoint `json:"arrival"`
	CarrierCode string   `json:"carrierCode"`
	Number      string   `json:"number"`
	Duration    string   `json:"duration"`
}

type Itinerary struct {
	Duration string    `json:"duration"`
	Segments []Segment `json:"segments"`
}

type Price struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// FlightOffer is one priced result. Offers are treated as immutable once
// received.
type FlightOffer struct {
	ID                     string      `json:"id"`
	Source                 string      `json:"source,omitempty"`
	Price                  Price       `json:"price"`
	Itineraries            []Itinerary `json:"itineraries"`
	ValidatingAirlineCodes []string    `json:"validatingAirlineCodes"`
}

type SearchMeta struct {
	Count int `json:"count"`
}

type FlightSearchResponse struct {
	Data []FlightOffer `json:"data"`
	Meta *SearchMeta   `json:"meta,omitempty"`
}

type SearchResult struct {
	Query      FlightSearchRequest `json:"query"`
	Mode       config.Mode         `json:"mode"`
	Providers  []string            `json:"providers"`
	Flights    []FlightOffer       `json:"flights"`
	TotalFound int                 `json:"totalFound"`
	Errors     []ProviderError     `json:"errors,omitempty"`
	Stale      bool                `json:"stale,omitempty"`
	FetchedAt  time.Time           `json:"fetchedAt"`
}

type ProviderError struct {
	Provider string    `json:"provider"`
	Kind     ErrorKind `json:"kind,omitempty"`
	Reason   string    `json:"reason"`
	Fallback string    `json:"fallback,omitempty"`
}

type ProviderInfo struct {
	Name         string       `json:"name"`
	Capabilities []Capability `json:"capabilities"`
	Tier         ProviderTier `json:"tier"`
	Status       string       `json:"status"`
	Reason       string       `json:"reason,omitempty"`
}

type DoctorReport struct {
	Mode      config.Mode     `json:"mode"`
	Providers []ProviderInfo  `json:"providers"`
	Env       config.EnvCheck `json:"env"`
	DataDir   string          `json:"dataDir"`
	Healthy   bool            `json:"healthy"`
	Summary   string          `json:"summary"`
}

type FlightAdapter interface {
	Name() string
	Tier() ProviderTier
	Capabilities() []Capability
	Available() (bool, string)
	SearchFlights(ctx context.Context, req FlightSearchRequest) (*FlightSearchResponse, error)
	SearchAirports(ctx context.Context, keyword string) ([]Airport, error)
}

package mock

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/harshit-mishr/sky-scrapper/internal/core"
)

// FlightsAdapter serves deterministic offers shaped like the Amadeus flight
// offers API. The same query always yields the same offers.
type FlightsAdapter struct{}

func NewFlightsAdapter() *FlightsAdapter {
	return &FlightsAdapter{}
}

func (a *FlightsAdapter) Name() string            { return "mock_flights" }
func (a *FlightsAdapter) Tier() core.ProviderTier { return core.TierEasySignup }
func (a *FlightsAdapter) Capabilities() []core.Capability {
	return []core.Capability{core.CapFlightsSearch, core.CapAirportsSearch}
}
func (a *FlightsAdapter) Available() (bool, string) { return true, "" }

var mockCarriers = []string{"AA", "UA", "DL", "BA", "LH", "AF", "KL", "EK", "QR", "SQ", "AC", "IB"}

var hubs = []string{"ORD", "FRA", "AMS", "DXB", "DOH", "CDG", "MAD"}

func (a *FlightsAdapter) SearchFlights(ctx context.Context, req core.FlightSearchRequest) (*core.FlightSearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	depart, err := time.Parse("2006-01-02", req.DepartDate)
	if err != nil {
		return nil, &core.SearchError{
			Op:       "mock.search_flights",
			Kind:     core.KindInvalidParams,
			Provider: a.Name(),
			Detail:   fmt.Sprintf("invalid departure date %q", req.DepartDate),
			Err:      err,
		}
	}

	var ret time.Time
	if req.ReturnDate != "" {
		ret, err = time.Parse("2006-01-02", req.ReturnDate)
		if err != nil {
			return nil, &core.SearchError{
				Op:       "mock.search_flights",
				Kind:     core.KindInvalidParams,
				Provider: a.Name(),
				Detail:   fmt.Sprintf("invalid return date %q", req.ReturnDate),
				Err:      err,
			}
		}
	}

	rng := rand.New(rand.NewSource(hashSeed(req.From + req.To + req.DepartDate + req.ReturnDate)))
	count := 8 + rng.Intn(8)
	if req.MaxResults > 0 && count > req.MaxResults {
		count = req.MaxResults
	}

	passengers := req.Adults + req.Children
	if passengers < 1 {
		passengers = 1
	}

	offers := make([]core.FlightOffer, 0, count)
	for i := 0; i < count; i++ {
		carrier := mockCarriers[rng.Intn(len(mockCarriers))]
		stops := rng.Intn(3)

		itineraries := []core.Itinerary{buildItinerary(rng, carrier, req.From, req.To, depart, stops)}
		if !ret.IsZero() {
			itineraries = append(itineraries, buildItinerary(rng, carrier, req.To, req.From, ret, stops))
		}

		fare := 180.0 + float64(rng.Intn(1400)) - float64(stops)*60
		if fare < 120 {
			fare = 120
		}
		if !ret.IsZero() {
			fare *= 1.8
		}
		total := fare*float64(passengers) + float64(req.Infants)*fare*0.1

		offers = append(offers, core.FlightOffer{
			ID:                     fmt.Sprintf("%d", i+1),
			Source:                 a.Name(),
			Price:                  core.Price{Total: fmt.Sprintf("%.2f", total), Currency: "USD"},
			Itineraries:            itineraries,
			ValidatingAirlineCodes: []string{carrier},
		})
	}

	return &core.FlightSearchResponse{Data: offers, Meta: &core.SearchMeta{Count: len(offers)}}, nil
}

func buildItinerary(rng *rand.Rand, carrier, from, to string, day time.Time, stops int) core.Itinerary {
	at := day.Add(time.Duration(5+rng.Intn(16))*time.Hour + time.Duration(rng.Intn(4)*15)*time.Minute)
	start := at

	points := []string{from}
	for s := 0; s < stops; s++ {
		points = append(points, hubs[rng.Intn(len(hubs))])
	}
	points = append(points, to)

	segments := make([]core.Segment, 0, len(points)-1)
	for i := 0; i < len(points)-1; i++ {
		flight := time.Duration(60+rng.Intn(480)) * time.Minute
		arrive := at.Add(flight)
		segments = append(segments, core.Segment{
			Departure:   core.Endpoint{IATACode: points[i], At: at.Format("2006-01-02T15:04:05")},
			Arrival:     core.Endpoint{IATACode: points[i+1], At: arrive.Format("2006-01-02T15:04:05")},
			CarrierCode: carrier,
			Number:      fmt.Sprintf("%d", 100+rng.Intn(900)),
			Duration:    isoDuration(flight),
		})
		at = arrive.Add(time.Duration(45+rng.Intn(120)) * time.Minute)
	}

	end, _ := time.Parse("2006-01-02T15:04:05", segments[len(segments)-1].Arrival.At)
	return core.Itinerary{Duration: isoDuration(end.Sub(start)), Segments: segments}
}

func isoDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h == 0:
		return fmt.Sprintf("PT%dM", m)
	case m == 0:
		return fmt.Sprintf("PT%dH", h)
	}
	return fmt.Sprintf("PT%dH%dM", h, m)
}

var airports = []core.Airport{
	{IATACode: "JFK", Name: "John F Kennedy International", CityName: "New York"},
	{IATACode: "LGA", Name: "LaGuardia", CityName: "New York"},
	{IATACode: "EWR", Name: "Newark Liberty International", CityName: "Newark"},
	{IATACode: "LAX", Name: "Los Angeles International", CityName: "Los Angeles"},
	{IATACode: "SFO", Name: "San Francisco International", CityName: "San Francisco"},
	{IATACode: "ORD", Name: "O'Hare International", CityName: "Chicago"},
	{IATACode: "YYZ", Name: "Toronto Pearson International", CityName: "Toronto"},
	{IATACode: "LHR", Name: "Heathrow", CityName: "London"},
	{IATACode: "LGW", Name: "Gatwick", CityName: "London"},
	{IATACode: "CDG", Name: "Charles de Gaulle", CityName: "Paris"},
	{IATACode: "AMS", Name: "Schiphol", CityName: "Amsterdam"},
	{IATACode: "FRA", Name: "Frankfurt am Main", CityName: "Frankfurt"},
	{IATACode: "MAD", Name: "Adolfo Suarez Madrid-Barajas", CityName: "Madrid"},
	{IATACode: "DXB", Name: "Dubai International", CityName: "Dubai"},
	{IATACode: "DOH", Name: "Hamad International", CityName: "Doha"},
	{IATACode: "DEL", Name: "Indira Gandhi International", CityName: "Delhi"},
	{IATACode: "BOM", Name: "Chhatrapati Shivaji Maharaj International", CityName: "Mumbai"},
	{IATACode: "SIN", Name: "Changi", CityName: "Singapore"},
	{IATACode: "HND", Name: "Haneda", CityName: "Tokyo"},
	{IATACode: "NRT", Name: "Narita International", CityName: "Tokyo"},
	{IATACode: "SYD", Name: "Kingsford Smith", CityName: "Sydney"},
}

const maxAirportResults = 10

// SearchAirports matches the keyword as a prefix of the code, the city or
// any word of the airport name.
func (a *FlightsAdapter) SearchAirports(ctx context.Context, keyword string) ([]core.Airport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kw := strings.ToUpper(strings.TrimSpace(keyword))
	out := []core.Airport{}
	if kw == "" {
		return out, nil
	}
	for _, ap := range airports {
		if len(out) == maxAirportResults {
			break
		}
		if matchesAirport(ap, kw) {
			out = append(out, ap)
		}
	}
	return out, nil
}

func matchesAirport(ap core.Airport, kw string) bool {
	if strings.HasPrefix(ap.IATACode, kw) || strings.HasPrefix(strings.ToUpper(ap.CityName), kw) {
		return true
	}
	for _, word := range strings.Fields(strings.ToUpper(ap.Name)) {
		if strings.HasPrefix(word, kw) {
			return true
		}
	}
	return false
}

func hashSeed(s string) int64 {
	var h int64
	for _, c := range s {
		h = h*31 + int64(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}

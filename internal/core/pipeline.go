package core

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

type StopBucket int

const (
	NonStop StopBucket = iota
	OneStop
	MultiStop
)

func (b StopBucket) String() string {
	switch b {
	case NonStop:
		return "nonstop"
	case OneStop:
		return "1 stop"
	default:
		return "2+ stops"
	}
}

func ParseStopBucket(s string) (StopBucket, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "nonstop", "direct":
		return NonStop, nil
	case "1":
		return OneStop, nil
	case "2", "2+":
		return MultiStop, nil
	}
	return 0, fmt.Errorf("invalid stop bucket %q (want 0, 1 or 2+)", s)
}

type SortOption string

const (
	SortByPrice     SortOption = "price"
	SortByDuration  SortOption = "duration"
	SortByDeparture SortOption = "departure"
)

func ParseSortOption(s string) (SortOption, error) {
	switch opt := SortOption(strings.ToLower(strings.TrimSpace(s))); opt {
	case SortByPrice, SortByDuration, SortByDeparture:
		return opt, nil
	}
	return "", fmt.Errorf("invalid sort option %q (want price, duration or departure)", s)
}

// PriceRange bounds are inclusive and expressed in the reference currency
// offers are requested in (USD).
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r PriceRange) Contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}

// DefaultPriceRange is what PriceRangeOf reports for an empty result set. It
// means "no data", not a real bound.
var DefaultPriceRange = PriceRange{Min: 0, Max: 10000}

// Filters with an empty selection in a dimension do not restrict it.
type Filters struct {
	Stops      []StopBucket `json:"stops"`
	PriceRange PriceRange   `json:"priceRange"`
	Airlines   []string     `json:"airlines"`
}

func DefaultFilters() Filters {
	return Filters{PriceRange: DefaultPriceRange}
}

// StopsCount is the stop count of the first itinerary.
func StopsCount(f FlightOffer) int {
	if len(f.Itineraries) == 0 {
		return 0
	}
	return max(0, len(f.Itineraries[0].Segments)-1)
}

func StopBucketOf(f FlightOffer) StopBucket {
	switch n := StopsCount(f); {
	case n == 0:
		return NonStop
	case n == 1:
		return OneStop
	default:
		return MultiStop
	}
}

type Duration struct {
	Hours   int
	Minutes int
}

func (d Duration) TotalMinutes() int {
	return d.Hours*60 + d.Minutes
}

var durationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?$`)

// ParseDuration reads "PT2H30M" style strings. Anything that does not match
// comes back as a zero duration; use parseDurationOK when the caller must
// tell the two apart.
func ParseDuration(s string) Duration {
	d, _ := parseDurationOK(s)
	return d
}

func parseDurationOK(s string) (Duration, bool) {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || (m[1] == "" && m[2] == "") {
		return Duration{}, false
	}
	hours, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	return Duration{Hours: hours, Minutes: mins}, true
}

// FormatDuration turns "PT2H30M" into "2h 30m"; unparseable input is returned as is.
func FormatDuration(s string) string {
	d, ok := parseDurationOK(s)
	if !ok {
		return s
	}
	var parts []string
	if d.Hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", d.Hours))
	}
	if d.Minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", d.Minutes))
	}
	if len(parts) == 0 {
		return "0m"
	}
	return strings.Join(parts, " ")
}

func ParsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func PriceOf(f FlightOffer) float64 {
	return ParsePrice(f.Price.Total)
}

// PriceOK reports the offer's total and whether it is a finite number. Offers
// with a missing or malformed total have no price for filtering, sorting or
// the price range.
func PriceOK(f FlightOffer) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(f.Price.Total), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

var airlineNames = map[string]string{
	"AA": "American Airlines",
	"UA": "United Airlines",
	"DL": "Delta Air Lines",
	"BA": "British Airways",
	"LH": "Lufthansa",
	"AF": "Air France",
	"KL": "KLM",
	"EK": "Emirates",
	"QR": "Qatar Airways",
	"SQ": "Singapore Airlines",
	"VS": "Virgin Atlantic",
	"AC": "Air Canada",
	"AS": "Alaska Airlines",
	"WN": "Southwest Airlines",
	"B6": "JetBlue",
}

func AirlineName(code string) string {
	if name, ok := airlineNames[strings.ToUpper(code)]; ok {
		return name
	}
	return code
}

// offerView is an offer reduced to the fields the filter pass reads.
type offerView struct {
	bucket   StopBucket
	price    float64
	hasPrice bool
	airlines []string
}

// normalizeOffer reads an offer once so the filter pass itself has no
// failure paths. A missing or malformed total leaves the price dimension
// unchecked.
func normalizeOffer(f FlightOffer) offerView {
	v := offerView{
		bucket:   StopBucketOf(f),
		airlines: f.ValidatingAirlineCodes,
	}
	v.price, v.hasPrice = PriceOK(f)
	return v
}

// FilterFlights keeps the offers matching every active dimension, in their
// original order.
func FilterFlights(flights []FlightOffer, filters Filters) []FlightOffer {
	stops := make(map[StopBucket]struct{}, len(filters.Stops))
	for _, b := range filters.Stops {
		stops[b] = struct{}{}
	}
	airlines := make(map[string]struct{}, len(filters.Airlines))
	for _, a := range filters.Airlines {
		if a = strings.ToUpper(strings.TrimSpace(a)); a != "" {
			airlines[a] = struct{}{}
		}
	}

	out := make([]FlightOffer, 0, len(flights))
	for _, f := range flights {
		v := normalizeOffer(f)
		if !matchStops(v, stops) || !matchPrice(v, filters.PriceRange) || !matchAirlines(v, airlines) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func matchStops(v offerView, stops map[StopBucket]struct{}) bool {
	if len(stops) == 0 {
		return true
	}
	_, ok := stops[v.bucket]
	return ok
}

func matchPrice(v offerView, r PriceRange) bool {
	if !v.hasPrice {
		return true
	}
	return r.Contains(v.price)
}

func matchAirlines(v offerView, airlines map[string]struct{}) bool {
	if len(airlines) == 0 {
		return true
	}
	for _, code := range v.airlines {
		if _, ok := airlines[strings.ToUpper(code)]; ok {
			return true
		}
	}
	return false
}

type sortKey struct {
	value float64
	ok    bool
}

// SortFlights returns a stably sorted copy. Offers missing the sort key keep
// their relative order after every keyed offer.
func SortFlights(flights []FlightOffer, sortBy SortOption) []FlightOffer {
	sorted := make([]FlightOffer, len(flights))
	copy(sorted, flights)

	var keyOf func(FlightOffer) sortKey
	switch sortBy {
	case SortByPrice:
		keyOf = func(f FlightOffer) sortKey {
			p, ok := PriceOK(f)
			return sortKey{value: p, ok: ok}
		}
	case SortByDuration:
		keyOf = durationKey
	case SortByDeparture:
		keyOf = departureKey
	default:
		return sorted
	}

	keys := make([]sortKey, len(sorted))
	idx := make([]int, len(sorted))
	for i, f := range sorted {
		keys[i] = keyOf(f)
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		ki, kj := keys[idx[i]], keys[idx[j]]
		if ki.ok != kj.ok {
			return ki.ok
		}
		return ki.ok && ki.value < kj.value
	})

	out := make([]FlightOffer, len(sorted))
	for i, j := range idx {
		out[i] = sorted[j]
	}
	return out
}

func durationKey(f FlightOffer) sortKey {
	if len(f.Itineraries) == 0 {
		return sortKey{}
	}
	d, ok := parseDurationOK(f.Itineraries[0].Duration)
	if !ok {
		return sortKey{}
	}
	return sortKey{value: float64(d.TotalMinutes()), ok: true}
}

func departureKey(f FlightOffer) sortKey {
	t, ok := DepartureTime(f)
	if !ok {
		return sortKey{}
	}
	return sortKey{value: float64(t.UnixMilli()), ok: true}
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DepartureTime is the departure of the first segment of the first itinerary.
func DepartureTime(f FlightOffer) (time.Time, bool) {
	if len(f.Itineraries) == 0 || len(f.Itineraries[0].Segments) == 0 {
		return time.Time{}, false
	}
	return parseTimestamp(f.Itineraries[0].Segments[0].Departure.At)
}

// ArrivalTime is the arrival of the last segment of the first itinerary.
func ArrivalTime(f FlightOffer) (time.Time, bool) {
	if len(f.Itineraries) == 0 || len(f.Itineraries[0].Segments) == 0 {
		return time.Time{}, false
	}
	segs := f.Itineraries[0].Segments
	return parseTimestamp(segs[len(segs)-1].Arrival.At)
}

func UniqueAirlines(flights []FlightOffer) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, f := range flights {
		for _, code := range f.ValidatingAirlineCodes {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

// PriceRangeOf reports the min and max parseable price. Without any priced
// offer it returns DefaultPriceRange and false.
func PriceRangeOf(flights []FlightOffer) (PriceRange, bool) {
	var (
		r     PriceRange
		found bool
	)
	for _, f := range flights {
		p, ok := PriceOK(f)
		if !ok {
			continue
		}
		if !found {
			r = PriceRange{Min: p, Max: p}
			found = true
			continue
		}
		r.Min = min(r.Min, p)
		r.Max = max(r.Max, p)
	}
	if !found {
		return DefaultPriceRange, false
	}
	return r, true
}

// DeriveView is the filtered and sorted projection of flights.
func DeriveView(flights []FlightOffer, filters Filters, sortBy SortOption) []FlightOffer {
	return SortFlights(FilterFlights(flights, filters), sortBy)
}

// DedupeFlights drops offers whose segments (carrier, flight number,
// departure) and total price repeat an earlier offer; the first one wins.
func DedupeFlights(flights []FlightOffer) []FlightOffer {
	seen := make(map[string]bool)
	var out []FlightOffer
	for _, f := range flights {
		key := dedupeKey(f)
		if key == "" {
			out = append(out, f)
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

func dedupeKey(f FlightOffer) string {
	if len(f.Itineraries) == 0 {
		return ""
	}
	var parts []string
	for _, it := range f.Itineraries {
		for _, s := range it.Segments {
			parts = append(parts, s.CarrierCode+s.Number+"@"+s.Departure.At)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "|") + "|" + f.Price.Total
}

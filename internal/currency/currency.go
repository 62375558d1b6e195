// Package currency converts prices between the supported display currencies.
//
// Rates are a static table relative to USD. They are an approximation kept in
// code: nothing here fetches live rates or tracks how old the numbers are.
package currency

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
	INR Currency = "INR"
)

// Reference is the currency every cross conversion is routed through.
const Reference = USD

var ErrUnsupported = errors.New("unsupported currency")

// units of each currency per one unit of Reference
var rates = map[Currency]float64{
	USD: 1,
	EUR: 0.92,
	GBP: 0.79,
	JPY: 149.5,
	CAD: 1.35,
	AUD: 1.52,
	INR: 83.0,
}

var symbols = map[Currency]string{
	USD: "$",
	EUR: "€",
	GBP: "£",
	JPY: "¥",
	CAD: "C$",
	AUD: "A$",
	INR: "₹",
}

var ordered = []Currency{USD, EUR, GBP, JPY, CAD, AUD, INR}

func All() []Currency {
	out := make([]Currency, len(ordered))
	copy(out, ordered)
	return out
}

func Valid(c Currency) bool {
	_, ok := rates[c]
	return ok
}

func Parse(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !Valid(c) {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
	return c, nil
}

// Rate returns the units of c per one unit of Reference.
func Rate(c Currency) (float64, bool) {
	r, ok := rates[c]
	return r, ok
}

// Convert moves amount from one currency to another through Reference.
// Identical codes return amount untouched. If either code is unsupported the
// amount is returned unchanged as well.
func Convert(amount float64, from, to Currency) float64 {
	if from == to {
		return amount
	}
	fromRate, ok := rates[from]
	if !ok {
		return amount
	}
	toRate, ok := rates[to]
	if !ok {
		return amount
	}
	return amount / fromRate * toRate
}

// Next cycles through All in order, wrapping around.
func Next(c Currency) Currency {
	for i, cur := range ordered {
		if cur == c {
			return ordered[(i+1)%len(ordered)]
		}
	}
	return Reference
}

func Symbol(c Currency) string {
	if s, ok := symbols[c]; ok {
		return s
	}
	return string(c) + " "
}

// FractionDigits is 0 for currencies shown without subunits, 2 otherwise.
func FractionDigits(c Currency) int {
	switch c {
	case JPY, INR:
		return 0
	default:
		return 2
	}
}

// Format renders amount with the currency symbol, thousands separators and
// FractionDigits(c) decimals, e.g. "$1,234.50" or "¥12,000".
func Format(amount float64, c Currency) string {
	digits := FractionDigits(c)
	negative := amount < 0
	if negative {
		amount = -amount
	}

	factor := math.Pow(10, float64(digits))
	amount = math.Round(amount*factor) / factor

	raw := strconv.FormatFloat(amount, 'f', digits, 64)
	whole, frac, _ := strings.Cut(raw, ".")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(Symbol(c))
	b.WriteString(groupThousands(whole))
	if digits > 0 {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

func groupThousands(whole string) string {
	if len(whole) <= 3 {
		return whole
	}
	var b strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	return b.String()
}

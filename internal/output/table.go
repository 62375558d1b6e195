package output

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/harshit-mishr/sky-scrapper/internal/core"
	"github.com/harshit-mishr/sky-scrapper/internal/currency"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	priceStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	cheapestBarStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42"))
)

type column struct {
	title string
	width int
}

var flightColumns = []column{
	{"#", 3},
	{"Price", 12},
	{"Airline", 22},
	{"Stops", 9},
	{"Duration", 9},
	{"Depart", 17},
	{"Arrive", 17},
	{"Route", 16},
}

// FlightTable renders flights as a text table with prices converted to cur.
// limit <= 0 renders every flight.
func FlightTable(w io.Writer, flights []core.FlightOffer, cur currency.Currency, limit int) error {
	if len(flights) == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("No flights match the current filters."))
		return err
	}
	if limit > 0 && len(flights) > limit {
		flights = flights[:limit]
	}

	titles := make([]string, len(flightColumns))
	for i, c := range flightColumns {
		titles[i] = pad(c.title, c.width)
	}
	if _, err := fmt.Fprintln(w, headerStyle.Render(strings.Join(titles, " "))); err != nil {
		return err
	}

	for i, f := range flights {
		cells := flightCells(i+1, f, cur)
		for j := range cells {
			cells[j] = pad(cells[j], flightColumns[j].width)
		}
		cells[1] = priceStyle.Render(cells[1])
		if _, err := fmt.Fprintln(w, strings.Join(cells, " ")); err != nil {
			return err
		}
	}
	return nil
}

func flightCells(n int, f core.FlightOffer, cur currency.Currency) []string {
	price := "n/a"
	if p, ok := core.PriceOK(f); ok {
		price = currency.Format(currency.Convert(p, currency.Reference, cur), cur)
	}

	var duration, route string
	if len(f.Itineraries) > 0 {
		it := f.Itineraries[0]
		duration = core.FormatDuration(it.Duration)
		if len(it.Segments) > 0 {
			stopsAt := []string{it.Segments[0].Departure.IATACode}
			for _, s := range it.Segments {
				stopsAt = append(stopsAt, s.Arrival.IATACode)
			}
			route = strings.Join(stopsAt, "-")
		}
	}

	return []string{
		fmt.Sprintf("%d", n),
		price,
		airlineLabel(f),
		StopsLabel(core.StopsCount(f)),
		duration,
		timeLabel(core.DepartureTime(f)),
		timeLabel(core.ArrivalTime(f)),
		route,
	}
}

func airlineLabel(f core.FlightOffer) string {
	if len(f.ValidatingAirlineCodes) == 0 {
		return "Unknown"
	}
	names := make([]string, len(f.ValidatingAirlineCodes))
	for i, code := range f.ValidatingAirlineCodes {
		names[i] = core.AirlineName(code)
	}
	return strings.Join(names, ", ")
}

func StopsLabel(n int) string {
	switch n {
	case 0:
		return "Nonstop"
	case 1:
		return "1 stop"
	}
	return fmt.Sprintf("%d stops", n)
}

func timeLabel(t time.Time, ok bool) string {
	if !ok {
		return ""
	}
	return t.Format("Jan 02 15:04")
}

const maxChartBars = 40

// PriceChart draws a vertical bar per flight in view order so the spread of
// prices across the result list is visible at a glance.
func PriceChart(w io.Writer, flights []core.FlightOffer, cur currency.Currency, height int) error {
	if height < 2 {
		height = 8
	}
	var prices []float64
	for _, f := range flights {
		if len(prices) == maxChartBars {
			break
		}
		p, ok := core.PriceOK(f)
		if !ok {
			continue
		}
		prices = append(prices, currency.Convert(p, currency.Reference, cur))
	}
	if len(prices) == 0 {
		_, err := fmt.Fprintln(w, dimStyle.Render("No prices to chart."))
		return err
	}

	hi, lo := prices[0], prices[0]
	for _, p := range prices {
		hi = math.Max(hi, p)
		lo = math.Min(lo, p)
	}

	levels := make([]int, len(prices))
	for i, p := range prices {
		if hi > 0 {
			levels[i] = int(math.Round(p / hi * float64(height)))
		}
		if levels[i] < 1 {
			levels[i] = 1
		}
	}

	hiLabel := currency.Format(hi, cur)
	loLabel := currency.Format(lo, cur)
	axis := len([]rune(hiLabel))
	if n := len([]rune(loLabel)); n > axis {
		axis = n
	}

	var b strings.Builder
	for row := height; row >= 1; row-- {
		label := ""
		switch row {
		case height:
			label = hiLabel
		case 1:
			label = loLabel
		}
		b.WriteString(padLeft(label, axis) + " │")
		for i, lvl := range levels {
			cell := "  "
			if lvl >= row {
				cell = "██"
			}
			style := barStyle
			if prices[i] == lo {
				style = cheapestBarStyle
			}
			b.WriteString(" " + style.Render(cell))
		}
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat(" ", axis) + " └" + strings.Repeat("───", len(levels)) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		if width <= 2 {
			return string(runes[:width])
		}
		return string(runes[:width-2]) + ".."
	}
	return s + strings.Repeat(" ", width-len(runes))
}

func padLeft(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return strings.Repeat(" ", width-n) + s
}

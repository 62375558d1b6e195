package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/harshit-mishr/sky-scrapper/internal/core"
	"github.com/harshit-mishr/sky-scrapper/internal/currency"
	"github.com/harshit-mishr/sky-scrapper/internal/output"
	"github.com/spf13/cobra"
)

func FlightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flights",
		Short: "Search, filter and sort flight offers",
	}
	cmd.AddCommand(flightsSearchCmd())
	return cmd
}

type searchView struct {
	Query     core.FlightSearchRequest `json:"query"`
	Mode      string                   `json:"mode"`
	Providers []string                 `json:"providers"`
	Currency  currency.Currency        `json:"currency"`
	Filters   core.Filters             `json:"filters"`
	SortBy    core.SortOption          `json:"sortBy"`
	Total     int                      `json:"totalFound"`
	Shown     int                      `json:"shown"`
	Flights   []core.FlightOffer       `json:"flights"`
	Errors    []core.ProviderError     `json:"errors,omitempty"`
}

func flightsSearchCmd() *cobra.Command {
	var (
		req       core.FlightSearchRequest
		sortFlag  string
		stopsFlag []string
		airlines  []string
		minPrice  float64
		maxPrice  float64
		curFlag   string
		showChart bool
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search for flights",
		Example: `  skyscrapper flights search --from JFK --to LHR --depart 2026-06-12 --return 2026-06-20
  skyscrapper flights search --from JFK --to LAX --depart 2026-07-01 --stops 0 --sort duration --currency EUR
  skyscrapper flights search --from CDG --to NRT --depart 2026-09-03 --mode live --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.From == "" || req.To == "" || req.DepartDate == "" {
				return cmd.Help()
			}

			sortBy, err := core.ParseSortOption(sortFlag)
			if err != nil {
				return err
			}
			stops := make([]core.StopBucket, 0, len(stopsFlag))
			for _, s := range stopsFlag {
				b, err := core.ParseStopBucket(s)
				if err != nil {
					return err
				}
				stops = append(stops, b)
			}

			a := bootstrap(cmd)
			defer a.close()

			cur, err := a.displayCurrency(curFlag)
			if err != nil {
				return err
			}

			result, err := a.orch.Search(cmd.Context(), req)
			if err != nil {
				if a.json {
					output.JSONSearchError(err)
					return nil
				}
				reportProviderErrors(result)
				return errors.New(core.UserMessage(err))
			}

			store := a.orch.Store()
			store.SetSortBy(sortBy)
			opts := []core.FilterOption{core.WithStops(stops...), core.WithAirlines(airlines...)}
			if cmd.Flags().Changed("min-price") || cmd.Flags().Changed("max-price") {
				full, _ := core.PriceRangeOf(store.State().Flights)
				lo, hi := full.Min, full.Max
				if cmd.Flags().Changed("min-price") {
					lo = currency.Convert(minPrice, cur, currency.Reference)
				}
				if cmd.Flags().Changed("max-price") {
					hi = currency.Convert(maxPrice, cur, currency.Reference)
				}
				opts = append(opts, core.WithPriceRange(lo, hi))
			}
			store.PatchFilters(opts...)

			if a.prefs != nil && !noHistory {
				if _, err := a.prefs.SaveSearch(result.Query, "", ""); err != nil {
					a.log.Warn("prefs.save_search_failed", "error", err.Error())
				}
			}

			state := store.State()
			if a.json {
				return output.JSON(searchView{
					Query:     result.Query,
					Mode:      string(result.Mode),
					Providers: result.Providers,
					Currency:  cur,
					Filters:   state.Filters,
					SortBy:    state.SortBy,
					Total:     len(state.Flights),
					Shown:     len(state.Filtered),
					Flights:   state.Filtered,
					Errors:    result.Errors,
				})
			}

			fmt.Fprintf(output.Writer, "%s → %s on %s: %d of %d flights (%s)\n\n",
				result.Query.From, result.Query.To, result.Query.DepartDate,
				len(state.Filtered), len(state.Flights), state.SortBy)
			if showChart {
				if err := output.PriceChart(output.Writer, state.Filtered, cur, 8); err != nil {
					return err
				}
				fmt.Fprintln(output.Writer)
			}
			if err := output.FlightTable(output.Writer, state.Filtered, cur, 0); err != nil {
				return err
			}
			reportProviderErrors(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.From, "from", "", "Origin airport code (required)")
	cmd.Flags().StringVar(&req.To, "to", "", "Destination airport code (required)")
	cmd.Flags().StringVar(&req.DepartDate, "depart", "", "Departure date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&req.ReturnDate, "return", "", "Return date YYYY-MM-DD (optional)")
	cmd.Flags().IntVar(&req.Adults, "adults", 1, "Number of adults")
	cmd.Flags().IntVar(&req.Children, "children", 0, "Number of children")
	cmd.Flags().IntVar(&req.Infants, "infants", 0, "Number of infants")
	cmd.Flags().IntVar(&req.MaxResults, "max", 20, "Maximum offers to request per provider")
	cmd.Flags().StringVar(&sortFlag, "sort", string(core.SortByPrice), "Sort by: price, duration, departure")
	cmd.Flags().StringSliceVar(&stopsFlag, "stops", nil, "Stop buckets to keep: 0, 1, 2+ (repeatable)")
	cmd.Flags().StringSliceVar(&airlines, "airlines", nil, "Validating airline codes to keep, e.g. BA,AA")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "Lowest price to keep, in the display currency")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "Highest price to keep, in the display currency")
	cmd.Flags().StringVar(&curFlag, "currency", "", "Display currency: USD, EUR, GBP, JPY, CAD, AUD, INR")
	cmd.Flags().BoolVar(&showChart, "chart", false, "Draw a price chart above the table")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this search in recent searches")

	return cmd
}

func reportProviderErrors(result *core.SearchResult) {
	if result == nil {
		return
	}
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", e.Provider, e.Reason)
	}
}

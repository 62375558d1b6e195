package commands

import (
	"fmt"
	"strings"

	"github.com/harshit-mishr/sky-scrapper/internal/output"
	"github.com/spf13/cobra"
)

func AirportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "airports",
		Short: "Look up airports by city, name or code",
	}
	cmd.AddCommand(airportsSearchCmd())
	return cmd
}

func airportsSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "search <keyword>",
		Short:   "Search airports matching a keyword (at least 2 characters)",
		Example: "  skyscrapper airports search lon\n  skyscrapper airports search JFK --mode live",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := bootstrap(cmd)
			defer a.close()

			airports := a.orch.SearchAirports(cmd.Context(), strings.Join(args, " "))
			if a.json {
				return output.JSON(airports)
			}
			if len(airports) == 0 {
				fmt.Fprintln(output.Writer, "No airports found.")
				return nil
			}
			for _, ap := range airports {
				fmt.Fprintf(output.Writer, "%-4s %-45s %s\n", ap.IATACode, ap.Name, ap.CityName)
			}
			return nil
		},
	}
}

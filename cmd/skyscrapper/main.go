package main

import (
	"fmt"
	"os"

	"github.com/harshit-mishr/sky-scrapper/cmd/skyscrapper/commands"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "skyscrapper",
		Short:         "Sky Scrapper flight search",
		Long:          "Search flights across mock and live providers, then filter, sort and compare prices in your preferred currency.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("mode", "", "Provider mode: mock, live, hybrid (default from config/env)")
	root.PersistentFlags().Bool("json", false, "Output as JSON")
	root.PersistentFlags().Bool("debug", false, "Write debug entries to the log file")

	root.AddCommand(commands.FlightsCmd())
	root.AddCommand(commands.AirportsCmd())
	root.AddCommand(commands.BrowseCmd())
	root.AddCommand(commands.ProvidersCmd())
	root.AddCommand(commands.DoctorCmd())
	root.AddCommand(commands.PrefsCmd())
	root.AddCommand(commands.RecentCmd())
	root.AddCommand(commands.CacheCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print skyscrapper version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("skyscrapper " + version)
		},
	}
}

package commands

import (
	"fmt"

	"github.com/harshit-mishr/sky-scrapper/internal/output"
	"github.com/spf13/cobra"
)

func RecentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Recent flight searches",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent searches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := bootstrap(cmd)
			defer a.close()
			if err := a.requirePrefs(); err != nil {
				return err
			}

			recent := a.prefs.RecentSearches()
			if a.json {
				return output.JSON(recent)
			}
			if len(recent) == 0 {
				fmt.Fprintln(output.Writer, "No recent searches.")
				return nil
			}
			for _, r := range recent {
				line := fmt.Sprintf("%s  %s → %s  %s", r.SavedAt().Local().Format("2006-01-02 15:04"), r.From, r.To, r.DepartDate)
				if r.ReturnDate != "" {
					line += " / " + r.ReturnDate
				}
				fmt.Fprintln(output.Writer, line)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget all recent searches",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := bootstrap(cmd)
			defer a.close()
			if err := a.requirePrefs(); err != nil {
				return err
			}
			return a.prefs.ClearRecentSearches()
		},
	})
	return cmd
}

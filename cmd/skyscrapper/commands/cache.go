package commands

import (
	"fmt"

	"github.com/harshit-mishr/sky-scrapper/internal/output"
	"github.com/spf13/cobra"
)

func CacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the search response cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show cached entry count and TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := bootstrap(cmd)
			defer a.close()
			if err := a.requirePrefs(); err != nil {
				return err
			}
			stats := map[string]any{
				"entries": a.cache.Len(),
				"ttl":     a.cfg.CacheTTL.String(),
				"path":    a.db.Path(),
			}
			if a.json {
				return output.JSON(stats)
			}
			fmt.Fprintf(output.Writer, "%d entries, ttl %s (%s)\n", a.cache.Len(), a.cfg.CacheTTL, a.db.Path())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached search response",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := bootstrap(cmd)
			defer a.close()
			if err := a.requirePrefs(); err != nil {
				return err
			}
			return a.cache.Clear()
		},
	})
	return cmd
}

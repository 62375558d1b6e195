package commands

import (
	"fmt"
	"strings"

	"github.com/harshit-mishr/sky-scrapper/internal/config"
	"github.com/harshit-mishr/sky-scrapper/internal/core"
	"github.com/harshit-mishr/sky-scrapper/internal/output"
	"github.com/spf13/cobra"
)

func DoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration, credentials, and provider health",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := bootstrap(cmd)
			defer a.close()

			infos := a.router.ProviderInfos()
			env := config.CheckAmadeusEnv()

			active := 0
			var issues []string
			for _, p := range infos {
				switch p.Status {
				case "active":
					active++
				case "no_credentials":
					issues = append(issues, fmt.Sprintf("%s: missing %s", p.Name,
						strings.Join(a.cfg.MissingCredentials(p.Name), ", ")))
				}
			}
			if a.cfg.Mode != config.ModeMock {
				issues = append(issues, env.Issues...)
			}
			if a.db == nil {
				issues = append(issues, "data directory unavailable: preferences and cache disabled")
			}

			summary := fmt.Sprintf("%d/%d providers active (mode=%s)", active, len(infos), a.cfg.Mode)
			if len(issues) > 0 {
				summary += " | issues: " + strings.Join(issues, "; ")
			}

			report := core.DoctorReport{
				Mode:      a.cfg.Mode,
				Providers: infos,
				Env:       env,
				DataDir:   a.cfg.DataDir,
				Healthy:   active > 0,
				Summary:   summary,
			}
			if a.json {
				return output.JSON(report)
			}

			fmt.Fprintln(output.Writer, report.Summary)
			fmt.Fprintf(output.Writer, "data dir: %s\n", report.DataDir)
			fmt.Fprintf(output.Writer, "amadeus:  key=%v (%d chars) secret=%v base=%s\n",
				env.HasAPIKey, env.APIKeyLength, env.HasAPISecret, env.BaseURL)
			if !report.Healthy {
				return fmt.Errorf("no active flight providers")
			}
			return nil
		},
	}
}

package commands

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harshit-mishr/sky-scrapper/internal/core"
	"github.com/harshit-mishr/sky-scrapper/internal/tui"
	"github.com/spf13/cobra"
)

func BrowseCmd() *cobra.Command {
	var (
		req     core.FlightSearchRequest
		curFlag string
	)

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactive flight browser",
		Long: "Opens a terminal UI for picking airports, running searches and narrowing results. " +
			"Without --from/--to the most recent search is loaded.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := bootstrap(cmd)
			defer a.close()

			cur, err := a.displayCurrency(curFlag)
			if err != nil {
				return err
			}

			var originName, destName string
			if req.From == "" && req.To == "" && a.prefs != nil {
				if recent := a.prefs.RecentSearches(); len(recent) > 0 {
					r := recent[0]
					req = r.FlightSearchRequest
					originName, destName = r.OriginName, r.DestinationName
				}
			}

			dark := lipgloss.HasDarkBackground()
			if a.prefs != nil {
				if v, ok := a.prefs.DarkMode(); ok {
					dark = v
				}
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			m := tui.NewModel(tui.Options{
				Context:      ctx,
				Logger:       a.log,
				Store:        a.orch.Store(),
				Orchestrator: a.orch,
				Prefs:        a.prefs,
				Currency:     cur,
				Dark:         dark,
				Debounce:     a.cfg.Debounce,
				Request:      req,
				OriginName:   originName,
				DestName:     destName,
			})
			defer m.Close()

			if req.From != "" && req.To != "" && req.DepartDate != "" {
				go func() {
					_, _ = a.orch.Search(ctx, req)
				}()
			}

			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}

	cmd.Flags().StringVar(&req.From, "from", "", "Origin airport code")
	cmd.Flags().StringVar(&req.To, "to", "", "Destination airport code")
	cmd.Flags().StringVar(&req.DepartDate, "depart", "", "Departure date YYYY-MM-DD")
	cmd.Flags().StringVar(&req.ReturnDate, "return", "", "Return date YYYY-MM-DD")
	cmd.Flags().IntVar(&req.Adults, "adults", 1, "Number of adults")
	cmd.Flags().IntVar(&req.MaxResults, "max", 50, "Maximum offers to request per provider")
	cmd.Flags().StringVar(&curFlag, "currency", "", "Display currency")

	return cmd
}

package commands

import (
	"fmt"

	"github.com/harshit-mishr/sky-scrapper/internal/output"
	"github.com/spf13/cobra"
)

func ProvidersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List and inspect flight providers",
	}
	cmd.AddCommand(providersListCmd())
	return cmd
}

func providersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all registered providers and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := bootstrap(cmd)
			defer a.close()

			infos := a.router.ProviderInfos()
			if a.json {
				return output.JSON(infos)
			}
			fmt.Fprintf(output.Writer, "mode: %s\n\n", a.router.Mode())
			for _, p := range infos {
				line := fmt.Sprintf("%-14s %-15s %-14s", p.Name, p.Status, p.Tier)
				if p.Reason != "" {
					line += "  " + p.Reason
				}
				fmt.Fprintln(output.Writer, line)
			}
			return nil
		},
	}
}

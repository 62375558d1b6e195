package commands

import (
	"fmt"
	"strconv"

	"github.com/harshit-mishr/sky-scrapper/internal/currency"
	"github.com/harshit-mishr/sky-scrapper/internal/output"
	"github.com/spf13/cobra"
)

type prefsView struct {
	Currency currency.Currency `json:"preferredCurrency"`
	DarkMode *bool             `json:"darkMode"`
}

func PrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change saved preferences",
	}
	cmd.AddCommand(prefsGetCmd())
	cmd.AddCommand(prefsSetCmd())
	return cmd
}

func prefsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show saved preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := bootstrap(cmd)
			defer a.close()
			if err := a.requirePrefs(); err != nil {
				return err
			}

			cur, _ := a.displayCurrency("")
			view := prefsView{Currency: cur}
			if dark, ok := a.prefs.DarkMode(); ok {
				view.DarkMode = &dark
			}
			if a.json {
				return output.JSON(view)
			}

			theme := "terminal default"
			if view.DarkMode != nil {
				theme = map[bool]string{true: "dark", false: "light"}[*view.DarkMode]
			}
			fmt.Fprintf(output.Writer, "currency: %s (%s)\ntheme:    %s\n", cur, currency.Symbol(cur), theme)
			return nil
		},
	}
}

func prefsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <currency|dark> <value>",
		Short: "Change a preference",
		Example: `  skyscrapper prefs set currency EUR
  skyscrapper prefs set dark true
  skyscrapper prefs set dark auto`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := bootstrap(cmd)
			defer a.close()
			if err := a.requirePrefs(); err != nil {
				return err
			}

			switch args[0] {
			case "currency":
				c, err := currency.Parse(args[1])
				if err != nil {
					return err
				}
				return a.prefs.SetCurrency(c)
			case "dark":
				if args[1] == "auto" {
					return a.prefs.ClearDarkMode()
				}
				v, err := strconv.ParseBool(args[1])
				if err != nil {
					return fmt.Errorf("dark must be true, false or auto")
				}
				return a.prefs.SetDarkMode(v)
			}
			return fmt.Errorf("unknown preference %q (want currency or dark)", args[0])
		},
	}
}

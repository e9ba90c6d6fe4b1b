package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"finance/internal/client"
	"finance/internal/config"
	"finance/internal/core"
)

// app carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE once flags are parsed.
type app struct {
	apiURL    string
	timeout   time.Duration
	client    *client.Client
	formatter *core.Formatter
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "financectl",
		Short:         "financectl manages income and expense transactions",
		Long:          `financectl talks to the finance API to list, add, update and delete transactions and to show the summary.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.apiURL == "" {
				return fmt.Errorf("api url is empty (set --api-url or FINANCE_API_URL)")
			}
			a.client = client.New(a.apiURL, nil)
			a.formatter = core.NewFormatter(cfg.CurrencyLocale, cfg.CurrencySymbol)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.apiURL, "api-url", cfg.APIURL, "base URL of the finance API")
	rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 15*time.Second, "request timeout")

	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newAddCmd(a))
	rootCmd.AddCommand(newUpdateCmd(a))
	rootCmd.AddCommand(newDeleteCmd(a))
	rootCmd.AddCommand(newSummaryCmd(a))

	return rootCmd
}

package main

import (
	"os"
	"strings"

	"github.com/pterm/pterm"

	"finance/internal/cli"
	"finance/internal/config"
)

func main() {
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " ERROR ",
		Style: pterm.NewStyle(pterm.BgLightRed, pterm.FgBlack),
	}

	cli.LoadEnvFile()
	cfg := config.Load()

	rootCmd := newRootCmd(cfg)
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(capitalize(err.Error()))
		os.Exit(1)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Author @gajzzs
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gajzzs/studyblock/internal/app"
	"github.com/gajzzs/studyblock/internal/config"
)

var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

// go build -ldflags "-X main.version=v0.1.0 -X main.commit=$(git rev-parse --short HEAD)" -o studyblock ./cmd/studyblock
var rootCmd = &cobra.Command{
	Use:   "studyblock",
	Short: "Block distracting websites during study sessions",
	Long: "studyblock redirects distracting websites to 127.0.0.1 through a managed\n" +
		"block in the system hosts file, and serves the same operations over HTTP.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.InitConfig(app.Flags.ConfigPath)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Version = version
	if commit != "" {
		rootCmd.Version = fmt.Sprintf("%s (%s %s)", version, commit, buildDate)
	}

	rootCmd.PersistentFlags().StringVarP(&app.Flags.ConfigPath, "config", "c", "", "config file (default "+config.ConfigFile+")")
	rootCmd.PersistentFlags().BoolVar(&app.Flags.JSON, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		app.NewBlockCommand(),
		app.NewUnblockCommand(),
		app.NewListCommand(),
		app.NewRestoreCommand(),
		app.NewStatusCommand(),
		app.NewConfigCommand(),
		app.NewServeCommand(),
		app.NewServiceCommand(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command claimflowctl operates on ClaimFlow storage directly: listing
// claims and appeals, driving appeals through their lifecycle, batch
// validation and resetting the sample data.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/claimflow/backend/internal/app"
	"github.com/claimflow/backend/internal/config"
)

type cli struct {
	envFile    string
	jsonOutput bool
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "claimflowctl",
		Short:         "Operate on ClaimFlow claims and appeals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "Config file read before the environment")
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "Output in JSON format")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(c.claimsCmd(), c.appealsCmd(), c.processCmd(), c.resetCmd())
	return root
}

func (c *cli) logger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.WarnLevel
	if c.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()
}

func (c *cli) app(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.LoadFile(c.envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(cmd.Context(), cfg, c.logger(cmd))
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xhad/ragflow/pkg/app"
	cfgPkg "github.com/xhad/ragflow/pkg/config"
	"github.com/xhad/ragflow/pkg/logging"
)

// cli holds state shared by every subcommand after PersistentPreRunE.
type cli struct {
	configPath string
	config     *cfgPkg.Config
	logger     *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "ragflow",
		Short:         "Run retrieval-augmented workflows over uploaded documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.config = config
			c.logger = logging.New(config.Logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to config file")

	root.AddCommand(
		newServeCmd(c),
		newIngestCmd(c),
		newRunCmd(c),
		newAskCmd(c),
		newDocumentsCmd(c),
	)
	return root
}

// loadConfig fails fast on an invalid configuration, before anything
// connects to the database or a model provider.
func loadConfig(path string) (*cfgPkg.Config, error) {
	config, err := cfgPkg.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if errs := config.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(msgs, "\n  "))
	}
	return config, nil
}

func (c *cli) app(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, c.config, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

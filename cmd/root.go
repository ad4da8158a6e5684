package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RG-FIDES/square-one-coffee/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "soc-etl",
	Short: "Edmonton coffee market study pipeline",
	Long:  "Discovers cafés via a grid sweep of the places API, ingests Edmonton open-data sets, enriches with spatial context, and consolidates everything into one relational store.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

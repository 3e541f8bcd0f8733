package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/textrelay/wa-assistant/internal/conf"
	"github.com/textrelay/wa-assistant/internal/observability"
)

var (
	cfg *conf.Config

	rootCmd = &cobra.Command{
		Use:           "assistant",
		Short:         "WhatsApp auto-reply assistant backed by a knowledge base and an AI model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; variables already in the environment win
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			cfg = conf.LoadFromEnv()
			observability.SetupLogger(cfg.Log, os.Stderr)
			return cfg.Validate()
		},
	}
)

func init() {
	rootCmd.Version = observability.Version
	rootCmd.AddCommand(serveCmd, mcpCmd, sendCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("assistant failed")
		os.Exit(1)
	}
}

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/quill/internal/config"
	"github.com/crimson-sun/quill/internal/logging"
)

// cfg is loaded once before any subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "quill",
	Short:         "Grammar correction service",
	Long:          "Quill corrects English sentences and labels the kind of correction applied.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if p, _ := cmd.Flags().GetString("config"); p != "" {
			os.Setenv("QUILL_CONFIG", p)
		}
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if b, _ := cmd.Flags().GetString("backend"); b != "" {
			loaded.Engine.Backend = b
			if err := loaded.Validate(); err != nil {
				return err
			}
		}
		if d, _ := cmd.Flags().GetString("model-dir"); d != "" {
			loaded.Engine.ModelDir = d
		}
		cfg = loaded

		logging.Init(cfg.Logging.Format, logging.ParseLevel(cfg.Logging.Level))
		slog.Debug("config loaded", "backend", cfg.Engine.Backend, "model_dir", cfg.Engine.ModelDir)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (overrides QUILL_CONFIG)")
	rootCmd.PersistentFlags().String("backend", "", "Correction backend: onnx, gemini or openai (overrides QUILL_BACKEND)")
	rootCmd.PersistentFlags().String("model-dir", "", "Directory with the exported ONNX model (overrides QUILL_MODEL_DIR)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(correctCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.AddCommand(versionCmd)
}

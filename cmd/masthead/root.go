package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/openglam/masthead/internal/api"
	"github.com/openglam/masthead/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "masthead",
	Short: "Newspaper cover detection for IIIF manifests",
	Long: `Masthead detects issue covers in scanned newspaper volumes published
as IIIF Presentation manifests, and rebuilds the manifest's table of
contents from the detected covers.

The pipeline includes:
  - Vision-model page classification (OpenAI or Gemini)
  - Structural masthead detection via Tesseract OCR
  - Manual correction of individual page verdicts
  - Manifest structure (range) regeneration and export`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.masthead/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "masthead home directory (default: ~/.masthead)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format and load .env before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

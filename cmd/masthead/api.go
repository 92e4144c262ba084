package main

import (
	"github.com/spf13/cobra"

	"github.com/openglam/masthead/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running masthead server via HTTP.

These commands require a running server (masthead serve).
Use --server to specify a custom server URL.

Examples:
  masthead api health                    # Check server health
  masthead api manifests load <url>      # Load a IIIF manifest
  masthead api jobs                      # List analysis jobs`,
}

var manifestsCmd = &cobra.Command{
	Use:   "manifests",
	Short: "Manifest session commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8090", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Jobs are flat: jobs / job <id> / cancel <id>
	apiCmd.AddCommand((&endpoints.ListJobsEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.GetJobEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.CancelJobEndpoint{}).Command(getServerURL))

	// Manifest sessions as subcommand group
	manifestsCmd.AddCommand((&endpoints.LoadManifestEndpoint{}).Command(getServerURL))
	manifestsCmd.AddCommand((&endpoints.ListManifestsEndpoint{}).Command(getServerURL))
	manifestsCmd.AddCommand((&endpoints.GetManifestEndpoint{}).Command(getServerURL))
	manifestsCmd.AddCommand((&endpoints.AnalyzeEndpoint{}).Command(getServerURL))
	manifestsCmd.AddCommand((&endpoints.GetResultsEndpoint{}).Command(getServerURL))
	manifestsCmd.AddCommand((&endpoints.SetPageEndpoint{}).Command(getServerURL))
	manifestsCmd.AddCommand((&endpoints.BuildStructuresEndpoint{}).Command(getServerURL))
	manifestsCmd.AddCommand((&endpoints.ExportEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(manifestsCmd)
	rootCmd.AddCommand(apiCmd)
}

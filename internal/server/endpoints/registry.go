package endpoints

import (
	"github.com/openglam/masthead/internal/api"
	"github.com/openglam/masthead/internal/tessd"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// TessManager is nil when the tesseract container is unmanaged.
	TessManager *tessd.Manager
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{TessManager: cfg.TessManager},

		// Manifest sessions
		&LoadManifestEndpoint{},
		&ListManifestsEndpoint{},
		&GetManifestEndpoint{},

		// Analysis
		&AnalyzeEndpoint{},
		&GetResultsEndpoint{},
		&SetPageEndpoint{},

		// Jobs
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
		&CancelJobEndpoint{},

		// Structures
		&BuildStructuresEndpoint{},
		&ExportEndpoint{},
	}
}

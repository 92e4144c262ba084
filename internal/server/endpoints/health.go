package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/openglam/masthead/internal/api"
	"github.com/openglam/masthead/internal/svcctx"
	"github.com/openglam/masthead/internal/tessd"
)

// HealthResponse is the response for the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server    string          `json:"server"`
	Providers ProvidersStatus `json:"providers"`
	Tesseract TesseractStatus `json:"tesseract"`
}

// ProvidersStatus lists registered classifier providers.
type ProvidersStatus struct {
	Visual     []string `json:"visual"`
	Structural []string `json:"structural"`
}

// TesseractStatus shows the managed OCR container state.
type TesseractStatus struct {
	Container string `json:"container"`
	URL       string `json:"url,omitempty"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct {
	// TessManager is set by the server since container lifecycle is not in
	// Services. Nil when tesseract is unmanaged.
	TessManager *tessd.Manager
}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Server: "running"}

	registry := svcctx.RegistryFrom(r.Context())
	if registry != nil {
		resp.Providers.Visual = registry.VisualNames()
		resp.Providers.Structural = registry.StructuralNames()
	}

	if e.TessManager != nil {
		status, err := e.TessManager.Status(r.Context())
		if err != nil {
			resp.Tesseract.Container = "error"
		} else {
			resp.Tesseract.Container = string(status)
		}
		resp.Tesseract.URL = e.TessManager.URL()
	} else {
		resp.Tesseract.Container = "unmanaged"
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

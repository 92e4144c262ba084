package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/openglam/masthead/internal/api"
	"github.com/openglam/masthead/internal/iiif"
	"github.com/openglam/masthead/internal/ranges"
	"github.com/openglam/masthead/internal/session"
	"github.com/openglam/masthead/internal/svcctx"
)

// StructuresResponse reports the ranges written into the manifest.
type StructuresResponse struct {
	SessionID  string         `json:"session_id"`
	CoverPages []int          `json:"cover_pages"`
	Ranges     []ranges.Range `json:"ranges"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// rebuildStructures regenerates the manifest's structures from the session's
// current cover set. The store serializes the rewrite against concurrent
// rebuilds and exports. An empty cover set removes the structures key.
func rebuildStructures(svc *svcctx.Services, sessionID string) (StructuresResponse, error) {
	covers, result, err := svc.Sessions.RebuildStructures(sessionID)
	if err != nil {
		return StructuresResponse{}, err
	}

	return StructuresResponse{
		SessionID:  sessionID,
		CoverPages: covers,
		Ranges:     result.Ranges,
		Warnings:   result.Warnings,
	}, nil
}

// BuildStructuresEndpoint handles POST /manifests/{id}/structures.
type BuildStructuresEndpoint struct{}

func (e *BuildStructuresEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/manifests/{id}/structures", e.handler
}

func (e *BuildStructuresEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Regenerate manifest structures
//	@Description	Rebuild the manifest's ranges from the current cover set
//	@Tags			structures
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	StructuresResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/manifests/{id}/structures [post]
func (e *BuildStructuresEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.ServicesFrom(r.Context())
	if svc == nil || svc.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	resp, err := rebuildStructures(svc, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *BuildStructuresEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "structures <session-id>",
		Short: "Regenerate manifest structures from the cover set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StructuresResponse
			if err := client.Post(cmd.Context(), "/manifests/"+args[0]+"/structures", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ExportEndpoint handles GET /manifests/{id}/export. It rebuilds structures
// from the current cover set and streams the full manifest JSON.
type ExportEndpoint struct{}

func (e *ExportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/manifests/{id}/export", e.handler
}

func (e *ExportEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Export the rewritten manifest
//	@Description	Manifest JSON with structures rebuilt from the cover set
//	@Tags			structures
//	@Produce		json
//	@Param			id	path	string	true	"Session ID"
//	@Success		200	{file}	binary
//	@Failure		404	{object}	ErrorResponse
//	@Router			/manifests/{id}/export [get]
func (e *ExportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svc := svcctx.ServicesFrom(r.Context())
	if svc == nil || svc.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	id := r.PathValue("id")
	data, err := svc.Sessions.ExportManifest(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".json"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (e *ExportEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export the manifest with regenerated structures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var manifest map[string]any
			if err := client.Get(cmd.Context(), "/manifests/"+args[0]+"/export", &manifest); err != nil {
				return err
			}
			if outPath == "" {
				return api.OutputDocument(manifest)
			}
			m, err := remarshalManifest(manifest)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, m, 0o644); err != nil {
				return fmt.Errorf("failed to write manifest: %w", err)
			}
			fmt.Printf("Wrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "Write the manifest to a file instead of stdout")
	return cmd
}

// remarshalManifest re-encodes a decoded manifest with the same formatting
// the server uses.
func remarshalManifest(manifest map[string]any) ([]byte, error) {
	m, err := iiif.ParseMap(manifest)
	if err != nil {
		return nil, err
	}
	return m.Encode()
}

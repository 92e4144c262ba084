package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/openglam/masthead/internal/api"
	"github.com/openglam/masthead/internal/iiif"
	"github.com/openglam/masthead/internal/session"
	"github.com/openglam/masthead/internal/svcctx"
)

// LoadManifestRequest is the request body for loading a manifest.
type LoadManifestRequest struct {
	URL string `json:"url"`
}

// LoadManifestEndpoint handles POST /manifests.
type LoadManifestEndpoint struct{}

func (e *LoadManifestEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/manifests", e.handler
}

func (e *LoadManifestEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Load a IIIF manifest
//	@Description	Fetch and parse a Presentation v2 manifest, creating a session
//	@Tags			manifests
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoadManifestRequest	true	"Manifest URL"
//	@Success		201		{object}	session.Session
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/manifests [post]
func (e *LoadManifestEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req LoadManifestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	svc := svcctx.ServicesFrom(r.Context())
	if svc == nil || svc.IIIF == nil || svc.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}
	manifest, err := svc.IIIF.FetchManifest(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch manifest: "+err.Error())
		return
	}
	if manifest.PageCount() == 0 {
		writeError(w, http.StatusBadRequest, "manifest has no canvases")
		return
	}

	sess := svc.Sessions.Create(req.URL, manifest)
	svc.Logger.Info("manifest loaded", "session_id", sess.ID, "url", req.URL, "pages", sess.PageCount)
	writeJSON(w, http.StatusCreated, sess)
}

func (e *LoadManifestEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "load <manifest-url>",
		Short: "Load a IIIF manifest into a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp session.Session
			if err := client.Post(cmd.Context(), "/manifests", LoadManifestRequest{URL: args[0]}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ListManifestsEndpoint handles GET /manifests.
type ListManifestsEndpoint struct{}

func (e *ListManifestsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/manifests", e.handler
}

func (e *ListManifestsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	List loaded manifests
//	@Tags		manifests
//	@Produce	json
//	@Success	200	{array}	session.Session
//	@Router		/manifests [get]
func (e *ListManifestsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
		return
	}
	writeJSON(w, http.StatusOK, sessions.List())
}

func (e *ListManifestsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp []session.Session
			if err := client.Get(cmd.Context(), "/manifests", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetManifestResponse is the session plus its page listing.
type GetManifestResponse struct {
	session.Session

	Pages []iiif.Canvas `json:"pages"`
}

// GetManifestEndpoint handles GET /manifests/{id}.
type GetManifestEndpoint struct{}

func (e *GetManifestEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/manifests/{id}", e.handler
}

func (e *GetManifestEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get a loaded manifest with its page listing
//	@Tags		manifests
//	@Produce	json
//	@Param		id	path		string	true	"Session ID"
//	@Success	200	{object}	GetManifestResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/manifests/{id} [get]
func (e *GetManifestEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
		return
	}

	sess, err := sessions.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	pages, err := sessions.Pages(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, GetManifestResponse{Session: sess, Pages: pages})
}

func (e *GetManifestEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <session-id>",
		Short: "Get a loaded manifest and its pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp GetManifestResponse
			if err := client.Get(cmd.Context(), "/manifests/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

package api

import (
	"net/http"

	"github.com/Maphikza/flow-wallet-state/internal/permission"
)

func (a *API) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireOrigin reads the origin query parameter, answering 400 when absent.
func requireOrigin(w http.ResponseWriter, r *http.Request) (string, bool) {
	origin := r.URL.Query().Get("origin")
	if origin == "" {
		writeError(w, r, http.StatusBadRequest, "origin is required")
		return "", false
	}
	return origin, true
}

func (a *API) HandleListSites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Sites.GetConnectedSites())
}

func (a *API) HandleRecentSites(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Sites.GetRecentConnectedSites())
}

// HandleReplaceSites replaces the whole cache. The first site in the body
// becomes the most recently used.
func (a *API) HandleReplaceSites(w http.ResponseWriter, r *http.Request) {
	var sites []permission.ConnectedSite
	if err := decodeBody(r, &sites); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	a.Sites.SetRecentConnectedSites(sites)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) HandleAddSite(w http.ResponseWriter, r *http.Request) {
	var req AddSiteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Origin == "" {
		writeError(w, r, http.StatusBadRequest, "origin is required")
		return
	}

	a.Sites.AddConnectedSite(req.Origin, req.Name, req.Icon, req.Chain, req.IsSigned)
	site, ok := a.Sites.GetWithoutUpdate(req.Origin)
	if !ok {
		writeError(w, r, http.StatusServiceUnavailable, "site cache not ready")
		return
	}
	writeJSON(w, http.StatusCreated, site)
}

func (a *API) HandleGetSite(w http.ResponseWriter, r *http.Request) {
	origin, ok := requireOrigin(w, r)
	if !ok {
		return
	}
	site, found := a.Sites.GetConnectedSite(origin)
	if !found {
		writeError(w, r, http.StatusNotFound, "site not connected")
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (a *API) HandleRemoveSite(w http.ResponseWriter, r *http.Request) {
	origin, ok := requireOrigin(w, r)
	if !ok {
		return
	}
	a.Sites.RemoveConnectedSite(origin)
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateSite merges the body into the stored site, or replaces it when
// partial=false.
func (a *API) HandleUpdateSite(w http.ResponseWriter, r *http.Request) {
	origin, ok := requireOrigin(w, r)
	if !ok {
		return
	}
	partial, err := queryBool(r, "partial", true)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var patch permission.SitePatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	a.Sites.UpdateConnectSite(origin, patch, partial)
	site, found := a.Sites.GetWithoutUpdate(origin)
	if !found {
		writeError(w, r, http.StatusNotFound, "site not connected")
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (a *API) HandleTouchSite(w http.ResponseWriter, r *http.Request) {
	origin, ok := requireOrigin(w, r)
	if !ok {
		return
	}
	a.Sites.TouchConnectedSite(origin)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) HandlePinSite(w http.ResponseWriter, r *http.Request) {
	origin, ok := requireOrigin(w, r)
	if !ok {
		return
	}
	order, err := queryInt(r, "order", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	a.Sites.TopConnectedSite(origin, order)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) HandleUnpinSite(w http.ResponseWriter, r *http.Request) {
	origin, ok := requireOrigin(w, r)
	if !ok {
		return
	}
	a.Sites.UnpinConnectedSite(origin)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) HandleHasPermission(w http.ResponseWriter, r *http.Request) {
	origin, ok := requireOrigin(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PermissionResponse{Origin: origin, Allowed: a.Sites.HasPermission(origin)})
}

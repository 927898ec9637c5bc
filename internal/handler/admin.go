package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/st0x/st0x-api/internal/model"
	"github.com/st0x/st0x-api/internal/service"
	"github.com/st0x/st0x-api/internal/store"
)

// AdminHandler serves the authenticated management surface: the registry
// setting and the HTTP half of API key lifecycle management. The CLI is the
// other consumer of the same KeyService.
type AdminHandler struct {
	store *store.Store
	keys  *service.KeyService
}

func NewAdminHandler(st *store.Store, keys *service.KeyService) *AdminHandler {
	return &AdminHandler{store: st, keys: keys}
}

// ---------------------------------------------------------------------------
// Registry setting
// ---------------------------------------------------------------------------

// GetRegistry returns the current registry URL. Requires any valid key.
func (h *AdminHandler) GetRegistry(w http.ResponseWriter, r *http.Request) {
	setting, err := h.store.GetSetting(r.Context(), model.SettingRegistryURL)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, model.CodeNotFound, "registry_url is not configured")
			return
		}
		writeError(w, http.StatusInternalServerError, model.CodeInternal, "failed to read setting")
		return
	}
	writeJSON(w, http.StatusOK, model.RegistryResponse{RegistryURL: setting.Value})
}

type updateRegistryRequest struct {
	RegistryURL string `json:"registry_url"`
}

// PutRegistry validates and persists a new registry URL. Admin keys only.
func (h *AdminHandler) PutRegistry(w http.ResponseWriter, r *http.Request) {
	var req updateRegistryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeBadRequest, "invalid request body")
		return
	}
	if req.RegistryURL == "" {
		writeError(w, http.StatusBadRequest, model.CodeBadRequest, "registry_url must not be empty")
		return
	}
	if u, err := url.Parse(req.RegistryURL); err != nil || u.Scheme == "" || u.Host == "" {
		writeError(w, http.StatusBadRequest, model.CodeBadRequest, "registry_url must be an absolute URL")
		return
	}

	if err := h.store.UpsertSetting(r.Context(), model.SettingRegistryURL, req.RegistryURL); err != nil {
		writeError(w, http.StatusInternalServerError, model.CodeInternal, "failed to persist setting")
		return
	}
	writeJSON(w, http.StatusOK, model.RegistryResponse{RegistryURL: req.RegistryURL})
}

// ---------------------------------------------------------------------------
// API key management (admin keys only)
// ---------------------------------------------------------------------------

// ListKeys returns metadata for all keys. Hashes and secrets are never
// present in the response.
func (h *AdminHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, model.CodeInternal, "failed to list keys")
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: keys,
		Meta:     &model.ResponseMeta{Count: len(keys)},
	})
}

type createKeyRequest struct {
	Label   string `json:"label"`
	Owner   string `json:"owner"`
	IsAdmin bool   `json:"is_admin"`
}

// CreateKey mints a new key and returns the plaintext secret. This is the
// only response that will ever contain it.
func (h *AdminHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.CodeBadRequest, "invalid request body")
		return
	}
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, model.CodeBadRequest, "label is required")
		return
	}
	if req.Owner == "" {
		writeError(w, http.StatusBadRequest, model.CodeBadRequest, "owner is required")
		return
	}

	created, err := h.keys.Create(r.Context(), req.Label, req.Owner, req.IsAdmin)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, model.CodeConflict, "key id already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, model.CodeInternal, "failed to create key")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// RevokeKey soft-disables a key. Repeating the call succeeds.
func (h *AdminHandler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "keyID")
	if err := h.keys.Revoke(r.Context(), keyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, model.CodeNotFound, "key not found")
			return
		}
		writeError(w, http.StatusInternalServerError, model.CodeInternal, "failed to revoke key")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"revoked": keyID})
}

// DeleteKey permanently removes a key record.
func (h *AdminHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "keyID")
	if err := h.keys.Delete(r.Context(), keyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, model.CodeNotFound, "key not found")
			return
		}
		writeError(w, http.StatusInternalServerError, model.CodeInternal, "failed to delete key")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": keyID})
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dynamo-works/claude-engine/internal/apierror"
	"github.com/dynamo-works/claude-engine/internal/catalog"
	"github.com/dynamo-works/claude-engine/internal/middleware"
	"github.com/dynamo-works/claude-engine/internal/models"
	keysvc "github.com/dynamo-works/claude-engine/internal/services/key"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// KeysHandler serves the admin API-key surface.
type KeysHandler struct {
	keys   *keysvc.Service
	logger *zap.Logger
}

func NewKeysHandler(keys *keysvc.Service, logger *zap.Logger) *KeysHandler {
	return &KeysHandler{keys: keys, logger: logger}
}

type createKeyRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type keyView struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	UserEmail  string     `json:"userEmail"`
	KeyPrefix  string     `json:"keyPrefix"`
	Role       string     `json:"role"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	RevokedAt  *time.Time `json:"revokedAt,omitempty"`
}

func viewOf(k *models.APIKey) keyView {
	return keyView{
		ID:         k.ID.String(),
		UserID:     k.UserID,
		UserEmail:  k.UserEmail,
		KeyPrefix:  k.KeyPrefix,
		Role:       k.Role,
		IsActive:   k.IsActive,
		CreatedAt:  k.CreatedAt,
		LastUsedAt: k.LastUsedAt,
		RevokedAt:  k.RevokedAt,
	}
}

func requireAdmin(w http.ResponseWriter, rc *middleware.RequestContext) bool {
	if rc.Role != catalog.RoleAdmin {
		apierror.Write(w, rc.RequestID, apierror.Forbidden("Admin access required"))
		return false
	}
	return true
}

// Create serves POST /v1/admin/api-keys. The raw key appears in this
// response and nowhere else.
func (h *KeysHandler) Create(w http.ResponseWriter, r *http.Request) {
	rc := middleware.GetRequestContext(r)
	if !requireAdmin(w, rc) {
		return
	}

	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, rc.RequestID, apierror.InvalidRequest("Invalid JSON body"))
		return
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		apierror.Write(w, rc.RequestID, apierror.InvalidRequest("A valid email is required"))
		return
	}
	if !catalog.IsKnownRole(req.Role) {
		req.Role = catalog.DefaultRole
	}

	res, err := h.keys.Create(r.Context(), req.Email, req.Role)
	if err != nil {
		h.writeKeyError(w, rc, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"key":    viewOf(res.Key),
		"rawKey": res.RawKey,
	})
}

// List serves GET /v1/admin/api-keys. Only the display prefix of each key
// survives.
func (h *KeysHandler) List(w http.ResponseWriter, r *http.Request) {
	rc := middleware.GetRequestContext(r)
	if !requireAdmin(w, rc) {
		return
	}

	keys, err := h.keys.List(r.Context())
	if err != nil {
		h.writeKeyError(w, rc, err)
		return
	}

	views := make([]keyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, viewOf(k))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"keys": views})
}

// Revoke serves DELETE /v1/admin/api-keys/{id}.
func (h *KeysHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	rc := middleware.GetRequestContext(r)
	if !requireAdmin(w, rc) {
		return
	}

	changed, err := h.keys.Revoke(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeKeyError(w, rc, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"revoked": changed})
}

// Rotate serves POST /v1/admin/api-keys/{id}/rotate.
func (h *KeysHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	rc := middleware.GetRequestContext(r)
	if !requireAdmin(w, rc) {
		return
	}

	res, err := h.keys.Rotate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeKeyError(w, rc, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"key":    viewOf(res.Key),
		"rawKey": res.RawKey,
	})
}

func (h *KeysHandler) writeKeyError(w http.ResponseWriter, rc *middleware.RequestContext, err error) {
	switch {
	case errors.Is(err, keysvc.ErrKeyNotFound):
		apierror.Write(w, rc.RequestID, apierror.NotFound("API key not found"))
	case errors.Is(err, keysvc.ErrNoStore):
		apierror.Write(w, rc.RequestID,
			apierror.InvalidRequest("Key management requires a configured database"))
	default:
		h.logger.Error("key operation failed",
			zap.String("request_id", rc.RequestID), zap.Error(err))
		apierror.Write(w, rc.RequestID, apierror.Internal())
	}
}

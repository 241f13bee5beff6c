package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dynamo-works/claude-engine/internal/catalog"
	"github.com/dynamo-works/claude-engine/internal/middleware"
)

type modelView struct {
	ID          string `json:"id"`
	Object      string `json:"object"`
	DisplayName string `json:"display_name"`
	Tier        int    `json:"tier"`
}

// ListModels serves GET /v1/models, filtered to what the caller's role may
// actually use.
func ListModels(w http.ResponseWriter, r *http.Request) {
	rc := middleware.GetRequestContext(r)

	role := catalog.GetRole(rc.Role)
	permitted := map[string]bool{}
	for _, id := range role.PermittedModels {
		permitted[id] = true
	}

	var data []modelView
	for _, m := range catalog.AllModels() {
		if rc.Role != catalog.RoleAdmin && !permitted[m.ID] {
			continue
		}
		data = append(data, modelView{
			ID:          m.ID,
			Object:      "model",
			DisplayName: m.DisplayName,
			Tier:        m.Tier,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"object": "list",
		"data":   data,
	})
}

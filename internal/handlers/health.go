package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var startTime = time.Now()

// Health serves GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"version": Version,
		"uptime":  time.Since(startTime).Round(time.Second).String(),
	})
}

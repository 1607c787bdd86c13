package server

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/BKrowchuk/Horizon/core"
)

// healthHandler reports overall service health plus the state of each
// dependency. A missing registry or an unwritable storage root degrades the
// status; the absence of an external vector mirror does not, since the flat
// index serves retrieval on its own.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "healthy"
	services := map[string]string{
		"registry":       "active",
		"vector_backend": "flat_only",
		"storage":        "active",
	}

	if s.registry == nil {
		services["registry"] = "inactive"
		status = "degraded"
	}
	if s.backend != nil {
		services["vector_backend"] = s.backend.Name()
	}
	if _, err := os.Stat(core.OutputsDir(s.root)); err != nil {
		services["storage"] = "inactive"
		status = "degraded"
	}

	core.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":      status,
		"timestamp":   time.Now().Unix(),
		"uptime_secs": time.Since(s.started).Seconds(),
		"services":    services,
		"runtime": map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"go_version": runtime.Version(),
		},
	})
}

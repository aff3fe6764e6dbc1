package server

import (
	"net/http"

	"github.com/aristath/elasticom/internal/utils"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	state := "healthy"
	for _, db := range s.databases {
		if err := db.QuickCheck(r.Context()); err != nil {
			s.log.Warn().Err(err).Str("database", db.Name()).Msg("Health check failed")
			status = http.StatusServiceUnavailable
			state = "unhealthy"
			break
		}
	}

	utils.WriteJSON(w, status, map[string]interface{}{
		"status":  state,
		"version": Version,
		"service": "elasticom",
	}, s.log)
}

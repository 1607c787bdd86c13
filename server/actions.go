package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/processors"
)

// actionsHandler creates action records (POST) and lists them (GET). The
// built-in extract_action_items type runs immediately against the transcript;
// any other type is stored pending for an external runner.
func (s *Server) actionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			ActionType string                 `json:"action_type"`
			MeetingID  string                 `json:"meeting_id"`
			Parameters map[string]interface{} `json:"parameters"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.ActionType == "" {
			core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "action_type is required"})
			return
		}
		if !checkMeetingID(w, req.MeetingID) {
			return
		}

		if req.ActionType == processors.ActionTypeExtract {
			fmt.Printf("Extracting action items for meeting %s\n", req.MeetingID)
			rec, err := s.extractor.Extract(r.Context(), req.MeetingID)
			if err != nil {
				core.WriteError(w, err)
				return
			}
			core.WriteJSON(w, http.StatusOK, rec)
			return
		}

		rec, err := s.actions.Create(req.ActionType, req.MeetingID, req.Parameters)
		if err != nil {
			core.WriteError(w, err)
			return
		}
		core.WriteJSON(w, http.StatusOK, rec)

	case http.MethodGet:
		records, err := s.actions.List()
		if err != nil {
			core.WriteError(w, err)
			return
		}
		core.WriteJSON(w, http.StatusOK, map[string]any{"actions": records})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// actionItemHandler serves GET /api/v1/actions/{id} and
// PUT /api/v1/actions/{id}/status.
func (s *Server) actionItemHandler(w http.ResponseWriter, r *http.Request) {
	suffix := pathID(r, "/api/v1/actions/")

	if r.Method == http.MethodPut && strings.HasSuffix(suffix, "/status") {
		actionID := strings.TrimSuffix(suffix, "/status")
		var req struct {
			Status string `json:"status"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		rec, err := s.actions.UpdateStatus(actionID, req.Status)
		if err != nil {
			core.WriteError(w, err)
			return
		}
		core.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "action_id": rec.ActionID, "status": rec.Status})
		return
	}

	if strings.Contains(suffix, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rec, err := s.actions.Get(suffix)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, rec)
}

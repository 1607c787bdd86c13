package server

import (
	"fmt"
	"net/http"

	"github.com/BKrowchuk/Horizon/core"
)

// embedHandler chunks the meeting transcript, embeds every chunk, and
// persists the flat index plus its metadata shadow.
func (s *Server) embedHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		MeetingID string `json:"meeting_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !checkMeetingID(w, req.MeetingID) {
		return
	}

	fmt.Printf("Building vector index for meeting %s\n", req.MeetingID)
	res, err := s.store.BuildIndex(r.Context(), req.MeetingID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, struct {
		core.EmbedResult
		Status string `json:"status"`
	}{res, "embedded"})
}

// searchHandler runs top-k retrieval over a meeting's index.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		MeetingID string `json:"meeting_id"`
		QueryText string `json:"query_text"`
		TopK      int    `json:"top_k"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !checkMeetingID(w, req.MeetingID) {
		return
	}
	if req.QueryText == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "query_text is required"})
		return
	}

	rows, err := s.store.Search(r.Context(), req.MeetingID, req.QueryText, req.TopK)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{
		"meeting_id":    req.MeetingID,
		"query_text":    req.QueryText,
		"results":       rows,
		"total_results": len(rows),
	})
}

// embedStatusHandler reports whether a meeting has a persisted index.
func (s *Server) embedStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	meetingID := pathID(r, "/api/v1/embedding/status/")
	if !checkMeetingID(w, meetingID) {
		return
	}

	status, err := s.store.Status(meetingID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, status)
}

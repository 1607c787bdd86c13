package server

import (
	"fmt"
	"net/http"

	"github.com/BKrowchuk/Horizon/core"
)

func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		MeetingID string `json:"meeting_id"`
		Query     string `json:"query"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !checkMeetingID(w, req.MeetingID) {
		return
	}

	fmt.Printf("Answering query for meeting %s\n", req.MeetingID)
	res, err := s.queries.Answer(r.Context(), req.MeetingID, req.Query)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, res)
}

// querySuggestionsHandler returns starter questions for the query console.
func (s *Server) querySuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"suggestions": []string{
		"What are the main topics discussed?",
		"What is the sentiment of the content?",
		"What are the key entities mentioned?",
		"What are the main action items?",
		"What is the overall summary?",
	}})
}

// queryHistoryHandler returns everything ever asked about a meeting, oldest
// first. A meeting with no queries yields an empty list.
func (s *Server) queryHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	meetingID := pathID(r, "/api/v1/query/history/")
	if !checkMeetingID(w, meetingID) {
		return
	}

	queries, err := s.queryLog.List(meetingID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"meeting_id": meetingID, "queries": queries})
}

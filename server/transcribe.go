package server

import (
	"fmt"
	"net/http"

	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/processors"
	"github.com/BKrowchuk/Horizon/storage"
)

func (s *Server) transcribeHandler(w http.ResponseWriter, r *http.Request) {
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

	fmt.Printf("Starting transcription for meeting %s\n", req.MeetingID)
	doc, err := processors.TranscribeMeeting(r.Context(), s.trans, s.root, req.MeetingID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, doc)
}

// transcribeStatusHandler answers "completed" with the transcript attached,
// or "pending" when nothing has been produced yet.
func (s *Server) transcribeStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	meetingID := pathID(r, "/api/v1/transcribe/status/")
	if !checkMeetingID(w, meetingID) {
		return
	}

	doc, err := storage.LoadTranscript(s.root, meetingID)
	if core.IsNotFound(err) {
		core.WriteJSON(w, http.StatusOK, map[string]any{"meeting_id": meetingID, "status": "pending"})
		return
	}
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"meeting_id": meetingID, "status": "completed", "data": doc})
}

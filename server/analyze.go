package server

import (
	"fmt"
	"net/http"

	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/storage"
)

func (s *Server) summarizeHandler(w http.ResponseWriter, r *http.Request) {
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

	fmt.Printf("Summarizing meeting %s\n", req.MeetingID)
	doc, err := s.summarizer.Summarize(r.Context(), req.MeetingID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, doc)
}

func (s *Server) insightsHandler(w http.ResponseWriter, r *http.Request) {
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

	fmt.Printf("Extracting insights for meeting %s\n", req.MeetingID)
	doc, err := s.insights.Extract(r.Context(), req.MeetingID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, doc)
}

func (s *Server) flowchartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		MeetingID  string `json:"meeting_id"`
		FormatType string `json:"format_type"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !checkMeetingID(w, req.MeetingID) {
		return
	}

	fmt.Printf("Building %s flowchart for meeting %s\n", req.FormatType, req.MeetingID)
	doc, err := s.flowchart.Build(r.Context(), req.MeetingID, req.FormatType)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, doc)
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		MeetingID  string `json:"meeting_id"`
		ReportType string `json:"report_type"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !checkMeetingID(w, req.MeetingID) {
		return
	}

	fmt.Printf("Generating %s report for meeting %s\n", req.ReportType, req.MeetingID)
	doc, err := s.reports.Build(req.MeetingID, req.ReportType)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, doc)
}

// storedReportHandler returns the report artifact written by an earlier
// generation call.
func (s *Server) storedReportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	meetingID := pathID(r, "/api/v1/report/")
	if !checkMeetingID(w, meetingID) {
		return
	}

	var doc core.ReportDoc
	if err := storage.LoadJSON("report.get", storage.OutputPath(s.root, meetingID, "report"), &doc); err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, doc)
}

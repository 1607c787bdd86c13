package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/processors"
	"github.com/BKrowchuk/Horizon/storage"
)

type pipelineResponse struct {
	MeetingID string      `json:"meeting_id,omitempty"`
	Filename  string      `json:"filename,omitempty"`
	Steps     []core.Step `json:"steps"`
	Warnings  []string    `json:"warnings"`
	Message   string      `json:"message"`
}

// pipelineHandler runs the whole flow for one uploaded file: store the audio,
// transcribe, summarize, build the vector index, extract insights. Transcribe
// and embed failures stop the run; summary and insights failures downgrade to
// warnings since the meeting stays queryable without them.
func (s *Server) pipelineHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := pipelineResponse{Steps: make([]core.Step, 0), Warnings: make([]string, 0)}

	file, header, err := r.FormFile("file")
	if err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "file field is required"})
		return
	}
	defer file.Close()

	if !isAudioUpload(header.Header.Get("Content-Type"), header.Filename) {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "File must be an audio file"})
		return
	}

	meetingID := core.NewMeetingID()
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".mp3" && ext != ".wav" {
		ext = ".mp3"
	}
	filename := meetingID + "_audio" + ext
	dst := storage.AudioPath(s.root, meetingID, ext)

	if err := saveUpload(dst, file); err != nil {
		resp.Steps = append(resp.Steps, core.Step{Name: "upload", Status: "failed", Error: err.Error()})
		resp.Message = "Upload failed"
		core.WriteJSON(w, http.StatusInternalServerError, resp)
		return
	}
	if err := s.registry.Put(storage.MeetingRecord{
		MeetingID:  meetingID,
		Filename:   filename,
		AudioPath:  dst,
		UploadedAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		resp.Steps = append(resp.Steps, core.Step{Name: "upload", Status: "failed", Error: err.Error()})
		resp.Message = "Upload failed"
		core.WriteJSON(w, http.StatusInternalServerError, resp)
		return
	}
	resp.MeetingID = meetingID
	resp.Filename = filename
	resp.Steps = append(resp.Steps, core.Step{Name: "upload", Status: "completed"})

	fmt.Printf("Pipeline: processing meeting %s\n", meetingID)

	ctx := r.Context()
	if _, err := processors.TranscribeMeeting(ctx, s.trans, s.root, meetingID); err != nil {
		resp.Steps = append(resp.Steps, core.Step{Name: "transcribe", Status: "failed", Error: err.Error()})
		resp.Message = "Transcription failed"
		core.WriteJSON(w, http.StatusInternalServerError, resp)
		return
	}
	resp.Steps = append(resp.Steps, core.Step{Name: "transcribe", Status: "completed"})

	if _, err := s.summarizer.Summarize(ctx, meetingID); err != nil {
		resp.Steps = append(resp.Steps, core.Step{Name: "summarize", Status: "failed", Error: err.Error()})
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("Summarization failed: %v", err))
	} else {
		resp.Steps = append(resp.Steps, core.Step{Name: "summarize", Status: "completed"})
	}

	if _, err := s.store.BuildIndex(ctx, meetingID); err != nil {
		resp.Steps = append(resp.Steps, core.Step{Name: "embed", Status: "failed", Error: err.Error()})
		resp.Message = "Embedding failed"
		core.WriteJSON(w, http.StatusInternalServerError, resp)
		return
	}
	resp.Steps = append(resp.Steps, core.Step{Name: "embed", Status: "completed"})

	if _, err := s.insights.Extract(ctx, meetingID); err != nil {
		resp.Steps = append(resp.Steps, core.Step{Name: "insights", Status: "failed", Error: err.Error()})
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("Insights extraction failed: %v", err))
	} else {
		resp.Steps = append(resp.Steps, core.Step{Name: "insights", Status: "completed"})
	}

	resp.Message = "Meeting processed successfully"
	fmt.Printf("Pipeline: meeting %s processed\n", meetingID)
	core.WriteJSON(w, http.StatusOK, resp)
}

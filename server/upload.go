package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/storage"
)

var audioExtensions = []string{".mp3", ".wav", ".m4a", ".flac", ".ogg", ".aac"}

// isAudioUpload accepts either an audio/* content type or a known audio
// extension, matching clients that send octet-stream for audio files.
func isAudioUpload(contentType, filename string) bool {
	if strings.HasPrefix(contentType, "audio/") {
		return true
	}
	lower := strings.ToLower(filename)
	for _, ext := range audioExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func (s *Server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

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
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("Upload failed: %v", err)})
		return
	}

	rec := storage.MeetingRecord{
		MeetingID:  meetingID,
		Filename:   filename,
		AudioPath:  dst,
		UploadedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.registry.Put(rec); err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("Upload failed: %v", err)})
		return
	}

	fmt.Printf("Uploaded meeting %s as %s\n", meetingID, filename)
	core.WriteJSON(w, http.StatusOK, map[string]string{"meeting_id": meetingID, "filename": filename})
}

// saveUpload streams the upload to a temp file and renames it into place so a
// half-written file never looks like a finished upload.
func saveUpload(dst string, src io.Reader) error {
	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func (s *Server) uploadStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	meetingID := pathID(r, "/api/v1/upload/status/")
	if !checkMeetingID(w, meetingID) {
		return
	}
	rec, err := s.registry.Get(meetingID)
	if err != nil {
		core.WriteError(w, err)
		return
	}
	core.WriteJSON(w, http.StatusOK, map[string]string{
		"meeting_id":  rec.MeetingID,
		"status":      "uploaded",
		"filename":    rec.Filename,
		"uploaded_at": rec.UploadedAt,
	})
}

package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/BKrowchuk/Horizon/config"
	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/processors"
	"github.com/BKrowchuk/Horizon/storage"
)

// Server owns every meeting-analysis component and exposes them over the
// /api/v1 HTTP surface.
type Server struct {
	cfg        *config.Config
	root       string
	store      *storage.IndexStore
	backend    storage.VectorBackend
	registry   *storage.MeetingRegistry
	queryLog   *storage.QueryLog
	trans      processors.Transcriber
	summarizer *processors.Summarizer
	insights   *processors.InsightsExtractor
	flowchart  *processors.FlowchartBuilder
	actions    *processors.ActionStore
	extractor  *processors.ActionExtractor
	reports    *processors.ReportBuilder
	queries    *processors.QueryEngine
	started    time.Time
}

// NewServer wires the full component graph from config: artifact directories,
// the meeting registry, the vector store with its optional external mirror,
// and the analysis processors.
func NewServer(cfg *config.Config) (*Server, error) {
	root := cfg.StorageRoot
	if err := core.EnsureDataDirs(root); err != nil {
		return nil, err
	}

	registry, err := storage.OpenRegistry(filepath.Join(root, "meetings.db"))
	if err != nil {
		return nil, err
	}

	backend := storage.PickBackend(cfg)
	store := storage.NewIndexStore(root, storage.PickEmbedder(cfg), processors.DefaultChunker(), backend)
	queryLog := storage.NewQueryLog(root)
	trans := processors.PickTranscriber(cfg)
	actions := processors.NewActionStore(root)

	return &Server{
		cfg:        cfg,
		root:       root,
		store:      store,
		backend:    backend,
		registry:   registry,
		queryLog:   queryLog,
		trans:      trans,
		summarizer: processors.NewSummarizer(cfg),
		insights:   processors.NewInsightsExtractor(cfg, trans),
		flowchart:  processors.NewFlowchartBuilder(cfg),
		actions:    actions,
		extractor:  processors.NewActionExtractor(cfg, actions),
		reports:    processors.NewReportBuilder(root, queryLog, actions),
		queries:    processors.NewQueryEngine(cfg, store, queryLog),
		started:    time.Now(),
	}, nil
}

func (s *Server) Close() error {
	var firstErr error
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			firstErr = err
		}
	}
	if s.registry != nil {
		if err := s.registry.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Routes registers every handler on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/upload", s.uploadHandler)
	mux.HandleFunc("/api/v1/upload/status/", s.uploadStatusHandler)
	mux.HandleFunc("/api/v1/transcribe", s.transcribeHandler)
	mux.HandleFunc("/api/v1/transcribe/status/", s.transcribeStatusHandler)
	mux.HandleFunc("/api/v1/summarize", s.summarizeHandler)
	mux.HandleFunc("/api/v1/insights", s.insightsHandler)
	mux.HandleFunc("/api/v1/actions", s.actionsHandler)
	mux.HandleFunc("/api/v1/actions/", s.actionItemHandler)
	mux.HandleFunc("/api/v1/flowchart", s.flowchartHandler)
	mux.HandleFunc("/api/v1/report", s.reportHandler)
	mux.HandleFunc("/api/v1/report/", s.storedReportHandler)
	mux.HandleFunc("/api/v1/embedding/embed", s.embedHandler)
	mux.HandleFunc("/api/v1/embedding/search", s.searchHandler)
	mux.HandleFunc("/api/v1/embedding/status/", s.embedStatusHandler)
	mux.HandleFunc("/api/v1/query", s.queryHandler)
	mux.HandleFunc("/api/v1/query/suggestions", s.querySuggestionsHandler)
	mux.HandleFunc("/api/v1/query/history/", s.queryHistoryHandler)
	mux.HandleFunc("/api/v1/pipeline/process", s.pipelineHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// decodeJSON reads the request body into v, answering 400 on garbage.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return false
	}
	return true
}

// checkMeetingID rejects empty ids and ids that could escape the artifact
// directories; artifact paths embed the id directly.
func checkMeetingID(w http.ResponseWriter, meetingID string) bool {
	if meetingID == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "meeting_id is required"})
		return false
	}
	if strings.ContainsAny(meetingID, "/\\") || meetingID == "." || meetingID == ".." {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid meeting_id"})
		return false
	}
	return true
}

// pathID returns the trailing path element after prefix.
func pathID(r *http.Request, prefix string) string {
	return strings.TrimPrefix(r.URL.Path, prefix)
}

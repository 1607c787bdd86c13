package core

// ========== Transcript artifacts ==========

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptDoc is the persisted transcript artifact for one meeting.
// Timestamps are stored as RFC 3339 strings, matching every other artifact.
// Segments are present only when the transcriber returned timestamps.
type TranscriptDoc struct {
	MeetingID  string    `json:"meeting_id"`
	ProjectID  string    `json:"project_id"`
	CreatedAt  string    `json:"created_at"`
	Transcript string    `json:"transcript"`
	Segments   []Segment `json:"segments,omitempty"`
}

// ========== Chunks and vector index metadata ==========

type TranscriptChunk struct {
	ChunkID int    `json:"chunk_id"`
	Text    string `json:"text"`
}

// ChunkRecord pairs a chunk with its embedding inside the index metadata;
// the metadata is a full shadow of the index and can rebuild it.
type ChunkRecord struct {
	ChunkID   int       `json:"chunk_id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

type IndexMeta struct {
	MeetingID      string        `json:"meeting_id"`
	ProjectID      string        `json:"project_id"`
	CreatedAt      string        `json:"created_at"`
	NumChunks      int           `json:"num_chunks"`
	ChunkSizeWords int           `json:"chunk_size_words"`
	OverlapWords   int           `json:"overlap_words"`
	EmbeddingModel string        `json:"embedding_model"`
	IndexType      string        `json:"index_type"`
	Dimension      int           `json:"dimension"`
	Vectors        []ChunkRecord `json:"vectors"`
}

type EmbedResult struct {
	MeetingID       string `json:"meeting_id"`
	NumChunks       int    `json:"num_chunks"`
	VectorIndexPath string `json:"vector_index_path"`
	MetaPath        string `json:"meta_path"`
}

// ========== Retrieval and query ==========

type SearchResult struct {
	Rank            int     `json:"rank"`
	ChunkID         int     `json:"chunk_id"`
	Text            string  `json:"text"`
	SimilarityScore float64 `json:"similarity_score"`
	Distance        float64 `json:"distance"`
}

type Source struct {
	ChunkID         int     `json:"chunk_id"`
	SimilarityScore float64 `json:"similarity_score"`
	TextPreview     string  `json:"text_preview"`
}

// QueryResult is both the query response body and the record appended to the
// per-meeting query log.
type QueryResult struct {
	MeetingID string   `json:"meeting_id"`
	Query     string   `json:"query"`
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	Timestamp string   `json:"timestamp"`
}

// ========== Analysis artifacts ==========

type SummaryDoc struct {
	MeetingID string `json:"meeting_id"`
	ProjectID string `json:"project_id"`
	CreatedAt string `json:"created_at"`
	Summary   string `json:"summary"`
}

// Moment is an important moment called out by the insights analysis,
// with MM:SS timestamps when the audio was analyzed.
type Moment struct {
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Text        string `json:"text"`
	Description string `json:"description"`
}

type InsightsDoc struct {
	MeetingID        string   `json:"meeting_id"`
	ProjectID        string   `json:"project_id"`
	CreatedAt        string   `json:"created_at"`
	Insights         string   `json:"insights"`
	ImportantMoments []Moment `json:"important_moments"`
}

// ActionRecord tracks a requested follow-up task. Records start "pending";
// the action-item extraction fills Result and completes in one step.
type ActionRecord struct {
	ActionID   string                 `json:"action_id"`
	ActionType string                 `json:"action_type"`
	MeetingID  string                 `json:"meeting_id"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Status     string                 `json:"status"`
	Result     map[string]interface{} `json:"result,omitempty"`
	CreatedAt  string                 `json:"created_at"`
	UpdatedAt  string                 `json:"updated_at"`
}

type FlowPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type FlowNode struct {
	ID       string       `json:"id"`
	Label    string       `json:"label"`
	Type     string       `json:"type"` // process, decision, start, end
	Position FlowPosition `json:"position"`
	Content  string       `json:"content"`
}

type FlowEdge struct {
	FromNode string `json:"from_node"`
	ToNode   string `json:"to_node"`
	Label    string `json:"label,omitempty"`
}

type FlowchartGraph struct {
	Nodes       []FlowNode `json:"nodes"`
	Connections []FlowEdge `json:"connections"`
}

type RenderInfo struct {
	MermaidVersion     string `json:"mermaid_version"`
	InteractiveLibrary string `json:"interactive_library,omitempty"`
}

// FlowchartDoc carries the mermaid rendering always; Graph is set only for
// the interactive format when the model output parsed cleanly. A failed
// parse leaves Status "degraded" with ParseError set instead of inventing
// placeholder nodes.
type FlowchartDoc struct {
	MeetingID  string          `json:"meeting_id"`
	ProjectID  string          `json:"project_id"`
	CreatedAt  string          `json:"created_at"`
	FormatType string          `json:"format_type"`
	Status     string          `json:"status"`
	Mermaid    string          `json:"mermaid_flowchart"`
	Graph      *FlowchartGraph `json:"graph,omitempty"`
	ParseError string          `json:"parse_error,omitempty"`
	Render     RenderInfo      `json:"render_info"`
}

type ReportMetrics struct {
	TranscriptWords int `json:"transcript_words"`
	SummaryWords    int `json:"summary_words"`
	MomentCount     int `json:"moment_count"`
	QueryCount      int `json:"query_count"`
}

type ReportSections struct {
	ExecutiveSummary string        `json:"executive_summary"`
	KeyFindings      []string      `json:"key_findings"`
	Recommendations  []string      `json:"recommendations"`
	Metrics          ReportMetrics `json:"metrics"`
	Missing          []string      `json:"missing,omitempty"`
}

type ReportDoc struct {
	MeetingID   string         `json:"meeting_id"`
	ReportType  string         `json:"report_type"`
	GeneratedAt string         `json:"generated_at"`
	Sections    ReportSections `json:"sections"`
}

// ========== Pipeline ==========

type Step struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "completed", "failed", "skipped"
	Error  string `json:"error,omitempty"`
}

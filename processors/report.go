package processors

import (
	"strings"
	"time"

	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/storage"
)

// ReportBuilder aggregates the artifacts produced for a meeting into one
// report document. Sections come from real artifacts; inputs that were never
// produced are listed under sections.missing instead of being faked.
type ReportBuilder struct {
	Root    string
	Log     *storage.QueryLog
	Actions *ActionStore
}

func NewReportBuilder(root string, log *storage.QueryLog, actions *ActionStore) *ReportBuilder {
	return &ReportBuilder{Root: root, Log: log, Actions: actions}
}

// Build assembles and persists the report. The meeting must have at least an
// uploaded audio file or a transcript on disk.
func (b *ReportBuilder) Build(meetingID, reportType string) (core.ReportDoc, error) {
	if reportType == "" {
		reportType = "comprehensive"
	}

	transcript, terr := storage.LoadTranscript(b.Root, meetingID)
	if terr != nil && !core.IsNotFound(terr) {
		return core.ReportDoc{}, terr
	}
	_, aerr := FindAudio(b.Root, meetingID)
	if terr != nil && aerr != nil {
		return core.ReportDoc{}, core.Ef(core.KindNotFound, "report", "meeting not found: %s", meetingID)
	}

	sections := core.ReportSections{
		KeyFindings:     []string{},
		Recommendations: []string{},
	}
	missing := []string{}

	if terr != nil {
		missing = append(missing, "transcript")
	} else {
		sections.Metrics.TranscriptWords = len(strings.Fields(transcript.Transcript))
	}

	var summary core.SummaryDoc
	if err := storage.LoadJSON("report.summary", storage.OutputPath(b.Root, meetingID, "summary"), &summary); err != nil {
		if !core.IsNotFound(err) {
			return core.ReportDoc{}, err
		}
		missing = append(missing, "summary")
	} else {
		sections.ExecutiveSummary = summary.Summary
		sections.Metrics.SummaryWords = len(strings.Fields(summary.Summary))
	}

	var insights core.InsightsDoc
	if err := storage.LoadJSON("report.insights", storage.OutputPath(b.Root, meetingID, "insights"), &insights); err != nil {
		if !core.IsNotFound(err) {
			return core.ReportDoc{}, err
		}
		missing = append(missing, "insights")
	} else {
		sections.KeyFindings = bulletLines(insights.Insights)
		sections.Metrics.MomentCount = len(insights.ImportantMoments)
	}

	items, err := b.completedActionItems(meetingID)
	if err != nil {
		return core.ReportDoc{}, err
	}
	if items == nil {
		missing = append(missing, "action_items")
	} else {
		sections.Recommendations = items
	}

	queries, err := b.Log.List(meetingID)
	if err != nil {
		return core.ReportDoc{}, err
	}
	sections.Metrics.QueryCount = len(queries)
	sections.Missing = missing

	doc := core.ReportDoc{
		MeetingID:   meetingID,
		ReportType:  reportType,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Sections:    sections,
	}
	if err := storage.SaveJSON(storage.OutputPath(b.Root, meetingID, "report"), doc); err != nil {
		return core.ReportDoc{}, core.E(core.KindInternal, "report.save", err)
	}
	return doc, nil
}

// completedActionItems returns the items from the newest completed extraction
// for the meeting, or nil when none has run.
func (b *ReportBuilder) completedActionItems(meetingID string) ([]string, error) {
	records, err := b.Actions.List()
	if err != nil {
		return nil, err
	}
	var items []string
	for _, rec := range records {
		if rec.MeetingID != meetingID || rec.ActionType != ActionTypeExtract || rec.Status != "completed" {
			continue
		}
		raw, ok := rec.Result["action_items"].([]interface{})
		if !ok {
			continue
		}
		items = make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				items = append(items, s)
			}
		}
	}
	return items, nil
}

// bulletLines pulls list items out of free-form analysis text, falling back
// to plain non-empty lines when the model didn't use bullets.
func bulletLines(text string) []string {
	bullets := []string{}
	plain := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		plain = append(plain, line)
		trimmed := line
		for _, marker := range []string{"- ", "* ", "• "} {
			trimmed = strings.TrimPrefix(trimmed, marker)
		}
		if trimmed == line && !startsNumbered(line) {
			continue
		}
		if startsNumbered(line) {
			if i := strings.IndexAny(line, ".)"); i >= 0 && i+1 < len(line) {
				trimmed = strings.TrimSpace(line[i+1:])
			}
		}
		if trimmed != "" {
			bullets = append(bullets, trimmed)
		}
	}
	if len(bullets) > 0 {
		return bullets
	}
	return plain
}

func startsNumbered(line string) bool {
	if line == "" || line[0] < '0' || line[0] > '9' {
		return false
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	return i < len(line) && (line[i] == '.' || line[i] == ')')
}

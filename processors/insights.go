package processors

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/BKrowchuk/Horizon/config"
	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/storage"
)

const insightsSystemPrompt = "You are an expert at identifying key insights from meeting transcripts and audio recordings. Analyze this transcript and extract: 1) Important moments (with timestamps if available), 2) Recurring patterns or themes, 3) Potential risks or opportunities mentioned, 4) Emotional tone or sentiment shifts. Format as bullet points under each category. For important moments, include timestamps when available."

var momentPattern = regexp.MustCompile(`\[(\d{2}:\d{2})-(\d{2}:\d{2})\]`)

// InsightsExtractor analyzes a transcript for themes, risks and notable
// moments, optionally anchored to whisper segment timestamps.
type InsightsExtractor struct {
	Chat    ChatClient
	Trans   Transcriber
	Model   string
	Timeout time.Duration
	Root    string
}

func NewInsightsExtractor(cfg *config.Config, trans Transcriber) *InsightsExtractor {
	return &InsightsExtractor{
		Chat:    NewChatClient(cfg),
		Trans:   trans,
		Model:   cfg.ChatModel,
		Timeout: cfg.ProviderTimeout(),
		Root:    cfg.StorageRoot,
	}
}

// Extract builds the insights artifact. Timestamped segments are best
// effort: if the audio is missing or the verbose transcription fails, the
// analysis proceeds on text alone.
func (e *InsightsExtractor) Extract(ctx context.Context, meetingID string) (core.InsightsDoc, error) {
	doc, err := storage.LoadTranscript(e.Root, meetingID)
	if err != nil {
		return core.InsightsDoc{}, err
	}
	if doc.Transcript == "" {
		return core.InsightsDoc{}, core.Ef(core.KindValidation, "insights", "transcript text is empty")
	}

	projectID := doc.ProjectID
	if projectID == "" {
		projectID = "unknown"
	}

	var segments []core.Segment
	if audioPath, aerr := FindAudio(e.Root, meetingID); aerr == nil && e.Trans != nil {
		segs, serr := e.Trans.TranscribeTimestamped(ctx, audioPath)
		if serr != nil {
			fmt.Printf("Warning: timestamped transcription failed, continuing without timeline: %v\n", serr)
		} else {
			segments = segs
		}
	}

	analysisContext := doc.Transcript
	if len(segments) > 0 {
		analysisContext += "\n\nTimestamped segments:\n" + FormatTimestampedSegments(segments)
	}

	text, err := chatText(ctx, e.Chat, e.Timeout, openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: insightsSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: analysisContext},
		},
		Temperature: 0.4,
		MaxTokens:   1000,
	})
	if err != nil {
		return core.InsightsDoc{}, err
	}

	insights := core.InsightsDoc{
		MeetingID:        meetingID,
		ProjectID:        projectID,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
		Insights:         text,
		ImportantMoments: ExtractImportantMoments(text, segments),
	}
	if err := storage.SaveJSON(storage.OutputPath(e.Root, meetingID, "insights"), insights); err != nil {
		return core.InsightsDoc{}, core.E(core.KindInternal, "insights.save", err)
	}
	return insights, nil
}

// FormatTimestamp renders seconds as MM:SS.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatTimestampedSegments renders segments one per line as
// [MM:SS-MM:SS] text, the shape the moment extractor looks for.
func FormatTimestampedSegments(segments []core.Segment) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s-%s] %s", FormatTimestamp(seg.Start), FormatTimestamp(seg.End), text))
	}
	return strings.Join(lines, "\n")
}

// ExtractImportantMoments pulls [MM:SS-MM:SS] references out of the insights
// text and joins each back to the segment covering that window.
func ExtractImportantMoments(insightsText string, segments []core.Segment) []core.Moment {
	matches := momentPattern.FindAllStringSubmatch(insightsText, -1)
	moments := make([]core.Moment, 0, len(matches))
	for _, m := range matches {
		start, end := m[1], m[2]
		var text string
		for _, seg := range segments {
			if FormatTimestamp(seg.Start) == start && FormatTimestamp(seg.End) == end {
				text = strings.TrimSpace(seg.Text)
				break
			}
		}
		moments = append(moments, core.Moment{
			StartTime:   start,
			EndTime:     end,
			Text:        text,
			Description: "Important moment identified in analysis",
		})
	}
	return moments
}

package processors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/BKrowchuk/Horizon/config"
	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/storage"
)

// Transcriber converts meeting audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
	TranscribeTimestamped(ctx context.Context, audioPath string) ([]core.Segment, error)
}

// WhisperTranscriber calls the hosted whisper model.
type WhisperTranscriber struct {
	cli     *openai.Client
	model   string
	timeout time.Duration
}

func NewWhisperTranscriber(cfg *config.Config) *WhisperTranscriber {
	return &WhisperTranscriber{
		cli:     newOpenAIClient(cfg),
		model:   cfg.TranscribeModel,
		timeout: 2 * cfg.ProviderTimeout(),
	}
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	resp, err := w.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
	})
	if err != nil {
		return "", core.E(core.KindProvider, "transcribe.whisper", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", core.Ef(core.KindProvider, "transcribe.whisper", "empty transcription result")
	}
	return text, nil
}

// TranscribeTimestamped re-runs whisper in verbose mode to recover segment
// boundaries for timeline analysis.
func (w *WhisperTranscriber) TranscribeTimestamped(ctx context.Context, audioPath string) ([]core.Segment, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	resp, err := w.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:       w.model,
		FilePath:    audioPath,
		Format:      openai.AudioResponseFormatVerboseJSON,
		Language:    "en",
		Temperature: 0,
		Prompt:      "This is a meeting recording. Transcribe accurately with timestamps.",
	})
	if err != nil {
		return nil, core.E(core.KindProvider, "transcribe.whisper", err)
	}

	segs := make([]core.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segs = append(segs, core.Segment{Start: s.Start, End: s.End, Text: text})
	}
	return segs, nil
}

// MockTranscriber produces deterministic placeholder text so the pipeline
// can run end to end without API access.
type MockTranscriber struct{}

func (MockTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", core.Ef(core.KindNotFound, "transcribe.mock", "audio file not found: %s", audioPath)
	}
	return fmt.Sprintf("Placeholder transcript for %s covering %d bytes of audio.", filepath.Base(audioPath), info.Size()), nil
}

func (MockTranscriber) TranscribeTimestamped(_ context.Context, audioPath string) ([]core.Segment, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, core.Ef(core.KindNotFound, "transcribe.mock", "audio file not found: %s", audioPath)
	}
	return []core.Segment{
		{Start: 0, End: 15, Text: "Placeholder transcript from 0s to 15s"},
		{Start: 15, End: 30, Text: "Placeholder transcript from 15s to 30s"},
	}, nil
}

// PickTranscriber selects the provider from the TRANSCRIBE environment
// variable, falling back to the mock when no API is configured.
func PickTranscriber(cfg *config.Config) Transcriber {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TRANSCRIBE"))) {
	case "mock":
		return MockTranscriber{}
	case "", "whisper":
		if !cfg.HasValidAPI() {
			fmt.Println("Warning: API configuration not found for whisper transcription, using mock transcriber")
			return MockTranscriber{}
		}
		return NewWhisperTranscriber(cfg)
	default:
		fmt.Println("Warning: unknown TRANSCRIBE provider, using mock transcriber")
		return MockTranscriber{}
	}
}

// FindAudio locates the uploaded audio file for a meeting.
func FindAudio(root, meetingID string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(core.AudioDir(root), meetingID+"_audio.*"))
	if err != nil || len(matches) == 0 {
		return "", core.Ef(core.KindNotFound, "transcribe.audio", "audio file not found for meeting: %s", meetingID)
	}
	return matches[0], nil
}

// TranscribeMeeting transcribes the uploaded audio and writes the transcript
// artifact every downstream processor reads.
func TranscribeMeeting(ctx context.Context, trans Transcriber, root, meetingID string) (core.TranscriptDoc, error) {
	audioPath, err := FindAudio(root, meetingID)
	if err != nil {
		return core.TranscriptDoc{}, err
	}

	text, err := trans.Transcribe(ctx, audioPath)
	if err != nil {
		return core.TranscriptDoc{}, err
	}

	doc := core.TranscriptDoc{
		MeetingID:  meetingID,
		ProjectID:  "demo_project",
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Transcript: text,
	}
	if err := storage.SaveTranscript(root, doc); err != nil {
		return core.TranscriptDoc{}, core.E(core.KindInternal, "transcribe.save", err)
	}
	return doc, nil
}

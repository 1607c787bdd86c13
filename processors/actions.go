package processors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/BKrowchuk/Horizon/config"
	"github.com/BKrowchuk/Horizon/core"
	"github.com/BKrowchuk/Horizon/storage"
)

const actionItemsSystemPrompt = "You are an expert at identifying action items from meeting transcripts. List every concrete follow-up task that was agreed or assigned in the meeting, one per line, starting each line with '- '. Include the owner when the transcript names one. If there are no action items, respond with exactly: NONE"

// ActionTypeExtract is the built-in action type executed immediately on
// creation; every other type is stored as a pending record.
const ActionTypeExtract = "extract_action_items"

// ActionStore persists action records as standalone artifacts under
// outputs/<action_id>.json. IDs are second-resolution timestamps, so
// creation is serialized and collisions get a numeric suffix.
type ActionStore struct {
	root string
	mu   sync.Mutex
}

func NewActionStore(root string) *ActionStore {
	return &ActionStore{root: root}
}

func (s *ActionStore) path(actionID string) string {
	return filepath.Join(core.OutputsDir(s.root), actionID+".json")
}

func validateActionID(actionID string) error {
	if actionID == "" {
		return core.Ef(core.KindValidation, "actions", "action_id is required")
	}
	if strings.ContainsAny(actionID, "/\\") || !strings.HasPrefix(actionID, "action_") {
		return core.Ef(core.KindValidation, "actions", "invalid action_id: %s", actionID)
	}
	return nil
}

func (s *ActionStore) newActionIDLocked() string {
	base := "action_" + time.Now().UTC().Format("20060102_150405")
	id := base
	for n := 2; ; n++ {
		if _, err := os.Stat(s.path(id)); os.IsNotExist(err) {
			return id
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

// Create stores a new pending action record and returns it.
func (s *ActionStore) Create(actionType, meetingID string, params map[string]interface{}) (core.ActionRecord, error) {
	if actionType == "" {
		return core.ActionRecord{}, core.Ef(core.KindValidation, "actions", "action_type is required")
	}
	if meetingID == "" {
		return core.ActionRecord{}, core.Ef(core.KindValidation, "actions", "meeting_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	rec := core.ActionRecord{
		ActionID:   s.newActionIDLocked(),
		ActionType: actionType,
		MeetingID:  meetingID,
		Parameters: params,
		Status:     "pending",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := storage.SaveJSON(s.path(rec.ActionID), rec); err != nil {
		return core.ActionRecord{}, core.E(core.KindInternal, "actions.save", err)
	}
	return rec, nil
}

func (s *ActionStore) Get(actionID string) (core.ActionRecord, error) {
	if err := validateActionID(actionID); err != nil {
		return core.ActionRecord{}, err
	}
	var rec core.ActionRecord
	if err := storage.LoadJSON("actions.get", s.path(actionID), &rec); err != nil {
		if core.IsNotFound(err) {
			return core.ActionRecord{}, core.Ef(core.KindNotFound, "actions.get", "action not found: %s", actionID)
		}
		return core.ActionRecord{}, err
	}
	return rec, nil
}

// UpdateStatus sets the record's status and refreshes updated_at.
func (s *ActionStore) UpdateStatus(actionID, status string) (core.ActionRecord, error) {
	if err := validateActionID(actionID); err != nil {
		return core.ActionRecord{}, err
	}
	if status == "" {
		return core.ActionRecord{}, core.Ef(core.KindValidation, "actions", "status is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var rec core.ActionRecord
	if err := storage.LoadJSON("actions.update", s.path(actionID), &rec); err != nil {
		if core.IsNotFound(err) {
			return core.ActionRecord{}, core.Ef(core.KindNotFound, "actions.update", "action not found: %s", actionID)
		}
		return core.ActionRecord{}, err
	}
	rec.Status = status
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := storage.SaveJSON(s.path(actionID), rec); err != nil {
		return core.ActionRecord{}, core.E(core.KindInternal, "actions.save", err)
	}
	return rec, nil
}

// List returns every stored action record in id (creation) order.
func (s *ActionStore) List() ([]core.ActionRecord, error) {
	paths, err := filepath.Glob(filepath.Join(core.OutputsDir(s.root), "action_*.json"))
	if err != nil {
		return nil, core.E(core.KindInternal, "actions.list", err)
	}
	records := make([]core.ActionRecord, 0, len(paths))
	for _, p := range paths {
		var rec core.ActionRecord
		if err := storage.LoadJSON("actions.list", p, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *ActionStore) put(rec core.ActionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := storage.SaveJSON(s.path(rec.ActionID), rec); err != nil {
		return core.E(core.KindInternal, "actions.save", err)
	}
	return nil
}

// ActionExtractor pulls concrete follow-up tasks out of a transcript and
// records them as a completed action record.
type ActionExtractor struct {
	Chat    ChatClient
	Store   *ActionStore
	Model   string
	Timeout time.Duration
	Root    string
}

func NewActionExtractor(cfg *config.Config, store *ActionStore) *ActionExtractor {
	return &ActionExtractor{
		Chat:    NewChatClient(cfg),
		Store:   store,
		Model:   cfg.ChatModel,
		Timeout: cfg.ProviderTimeout(),
		Root:    cfg.StorageRoot,
	}
}

// Extract runs action-item extraction for the meeting and stores the result.
// Provider failures mark the record "failed" and return the error.
func (e *ActionExtractor) Extract(ctx context.Context, meetingID string) (core.ActionRecord, error) {
	doc, err := storage.LoadTranscript(e.Root, meetingID)
	if err != nil {
		return core.ActionRecord{}, err
	}
	if doc.Transcript == "" {
		return core.ActionRecord{}, core.Ef(core.KindValidation, "actions", "no transcript text found for meeting: %s", meetingID)
	}

	rec, err := e.Store.Create(ActionTypeExtract, meetingID, nil)
	if err != nil {
		return core.ActionRecord{}, err
	}

	text, err := chatText(ctx, e.Chat, e.Timeout, openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: actionItemsSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Extract the action items from this meeting transcript:\n\n" + doc.Transcript},
		},
		Temperature: 0.2,
		MaxTokens:   800,
	})
	if err != nil {
		if _, uerr := e.Store.UpdateStatus(rec.ActionID, "failed"); uerr != nil {
			fmt.Printf("Warning: failed to mark action %s failed: %v\n", rec.ActionID, uerr)
		}
		return core.ActionRecord{}, err
	}

	items := ParseActionItems(text)
	rec.Status = "completed"
	rec.Result = map[string]interface{}{"action_items": items}
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := e.Store.put(rec); err != nil {
		return core.ActionRecord{}, err
	}
	return rec, nil
}

// ParseActionItems turns the model's line-per-item response into a clean
// slice. A bare NONE response yields an empty (non-nil) slice.
func ParseActionItems(text string) []string {
	items := []string{}
	if strings.TrimSpace(text) == "NONE" {
		return items
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimSpace(line)
		if line == "" || line == "-" || line == "*" || line == "NONE" {
			continue
		}
		items = append(items, line)
	}
	return items
}

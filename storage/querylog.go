package storage

import (
	"sync"

	"github.com/BKrowchuk/Horizon/core"
)

// QueryLog persists each meeting's question history as a JSON array
// artifact. Appends are read-modify-write under a per-meeting mutex so
// concurrent queries cannot drop each other's records.
type QueryLog struct {
	root  string
	locks sync.Map // meeting id -> *sync.Mutex
}

func NewQueryLog(root string) *QueryLog {
	return &QueryLog{root: root}
}

func (l *QueryLog) path(meetingID string) string {
	return OutputPath(l.root, meetingID, "queries")
}

func (l *QueryLog) lockFor(meetingID string) *sync.Mutex {
	v, _ := l.locks.LoadOrStore(meetingID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Append adds one record to the end of the meeting's history. A corrupt log
// file is reported rather than overwritten.
func (l *QueryLog) Append(meetingID string, rec core.QueryResult) error {
	mu := l.lockFor(meetingID)
	mu.Lock()
	defer mu.Unlock()

	records, err := l.readAll(meetingID)
	if err != nil && !core.IsNotFound(err) {
		return err
	}
	records = append(records, rec)
	return SaveJSON(l.path(meetingID), records)
}

// List returns the history oldest first. A meeting that has never been
// queried returns an empty slice, not an error.
func (l *QueryLog) List(meetingID string) ([]core.QueryResult, error) {
	mu := l.lockFor(meetingID)
	mu.Lock()
	defer mu.Unlock()

	records, err := l.readAll(meetingID)
	if core.IsNotFound(err) {
		return []core.QueryResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (l *QueryLog) readAll(meetingID string) ([]core.QueryResult, error) {
	var records []core.QueryResult
	if err := LoadJSON("querylog.read", l.path(meetingID), &records); err != nil {
		return nil, err
	}
	return records, nil
}

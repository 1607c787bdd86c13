package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/BKrowchuk/Horizon/core"
)

var bucketMeetings = []byte("meetings")

// MeetingRecord is what the registry remembers about an upload.
type MeetingRecord struct {
	MeetingID  string `json:"meeting_id"`
	Filename   string `json:"filename"`
	AudioPath  string `json:"audio_path"`
	UploadedAt string `json:"uploaded_at"`
}

// MeetingRegistry tracks uploaded meetings in a bbolt database so status
// endpoints answer from one place instead of probing the filesystem.
type MeetingRegistry struct {
	db *bbolt.DB
}

func OpenRegistry(path string) (*MeetingRegistry, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMeetings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &MeetingRegistry{db: db}, nil
}

func (r *MeetingRegistry) Put(rec MeetingRecord) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeetings)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.MeetingID), data)
	})
}

func (r *MeetingRegistry) Get(meetingID string) (MeetingRecord, error) {
	var rec MeetingRecord
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeetings)
		data := b.Get([]byte(meetingID))
		if data == nil {
			return core.Ef(core.KindNotFound, "registry.get", "meeting not registered: %s", meetingID)
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return core.Ef(core.KindCorrupt, "registry.get", "corrupt registry record %s: %v", meetingID, err)
		}
		return nil
	})
	if err != nil {
		return MeetingRecord{}, err
	}
	return rec, nil
}

// List returns every registered meeting in key order.
func (r *MeetingRegistry) List() ([]MeetingRecord, error) {
	var records []MeetingRecord
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeetings)
		return b.ForEach(func(k, v []byte) error {
			var rec MeetingRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return core.Ef(core.KindCorrupt, "registry.list", "corrupt registry record %s: %v", string(k), err)
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *MeetingRegistry) Close() error {
	return r.db.Close()
}

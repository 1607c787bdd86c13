package storage

import (
	"github.com/BKrowchuk/Horizon/core"
)

func SaveTranscript(root string, doc core.TranscriptDoc) error {
	return SaveJSON(TranscriptPath(root, doc.MeetingID), doc)
}

func LoadTranscript(root, meetingID string) (core.TranscriptDoc, error) {
	var doc core.TranscriptDoc
	if err := LoadJSON("transcript.load", TranscriptPath(root, meetingID), &doc); err != nil {
		return core.TranscriptDoc{}, err
	}
	return doc, nil
}

package storage

import (
	"github.com/BKrowchuk/Horizon/core"
)

// SaveIndexMeta writes the metadata sidecar next to the binary index. The
// sidecar carries the full chunk texts and embeddings, so a flat index can
// always be rebuilt from it alone.
func SaveIndexMeta(root string, meta core.IndexMeta) error {
	return SaveJSON(MetaPath(root, meta.MeetingID), meta)
}

func LoadIndexMeta(root, meetingID string) (core.IndexMeta, error) {
	var meta core.IndexMeta
	if err := LoadJSON("meta.load", MetaPath(root, meetingID), &meta); err != nil {
		return core.IndexMeta{}, err
	}
	return meta, nil
}

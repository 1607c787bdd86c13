package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BKrowchuk/Horizon/core"
)

// ---------------- Artifact locations ----------------
// Every artifact a meeting produces is keyed by its meeting id under the
// storage root: audio/, transcripts/, vectors/, outputs/.

func AudioPath(root, meetingID, ext string) string {
	return filepath.Join(core.AudioDir(root), meetingID+"_audio"+ext)
}

func TranscriptPath(root, meetingID string) string {
	return filepath.Join(core.TranscriptsDir(root), meetingID+".json")
}

func IndexPath(root, meetingID string) string {
	return filepath.Join(core.VectorsDir(root), meetingID+".index")
}

func MetaPath(root, meetingID string) string {
	return filepath.Join(core.VectorsDir(root), meetingID+"_meta.json")
}

// OutputPath names a derived artifact such as summary, insights, actions,
// flowchart, report or queries.
func OutputPath(root, meetingID, kind string) string {
	return filepath.Join(core.OutputsDir(root), meetingID+"_"+kind+".json")
}

// ---------------- JSON helpers ----------------

// SaveJSON writes v as indented JSON through a temp sibling and a rename, so
// readers either see the previous artifact or the complete new one.
func SaveJSON(path string, v interface{}) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

// LoadJSON reads a JSON artifact into v. A missing file maps to NotFound and
// undecodable content to Corrupt, both tagged with op.
func LoadJSON(op, path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Ef(core.KindNotFound, op, "artifact not found: %s", path)
		}
		return core.E(core.KindInternal, op, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return core.Ef(core.KindCorrupt, op, "corrupt artifact %s: %v", path, err)
	}
	return nil
}

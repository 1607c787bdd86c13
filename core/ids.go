package core

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DataRoot is the base directory for all meeting artifacts. STORAGE_ROOT
// overrides it for tests and deployments.
func DataRoot() string {
	if v := os.Getenv("STORAGE_ROOT"); v != "" {
		return v
	}
	return filepath.Join(".", "storage")
}

func AudioDir(root string) string       { return filepath.Join(root, "audio") }
func TranscriptsDir(root string) string { return filepath.Join(root, "transcripts") }
func VectorsDir(root string) string     { return filepath.Join(root, "vectors") }
func OutputsDir(root string) string     { return filepath.Join(root, "outputs") }

// EnsureDataDirs creates the artifact directory tree under root.
func EnsureDataDirs(root string) error {
	for _, dir := range []string{AudioDir(root), TranscriptsDir(root), VectorsDir(root), OutputsDir(root)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// NewMeetingID mints a fresh meeting identifier.
func NewMeetingID() string { return uuid.NewString() }

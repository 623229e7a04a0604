package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

const URLFileName = "url"

// Publish replaces the file at path with value. Any existing file is removed
// first, so a reader may briefly see no file but never a partial mix of old
// and new content.
func Publish(path, value string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error removing %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}

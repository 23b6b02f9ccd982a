package helpers

import (
	"os"
	"path/filepath"
)

// OpenAppendLog opens (creating if needed) a log file for appending
func OpenAppendLog(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

package scenario

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SaveToRecent stores the scenario that started a session in dir, named after
// originalPath with an incrementing suffix. A Lua original is copied verbatim
// to keep its comments; anything else is rendered from s.
func SaveToRecent(dir string, s *Scenario, originalPath string) (string, error) {
	if dir == "" {
		dir = "recent"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create recent directory: %w", err)
	}

	base := "session"
	if originalPath != "" {
		name := filepath.Base(originalPath)
		base = strings.TrimSuffix(name, filepath.Ext(name))
	}

	var newPath string
	for counter := 1; ; counter++ {
		newPath = filepath.Join(dir, fmt.Sprintf("%s_%d.lua", base, counter))
		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			break
		}
	}

	f, err := os.OpenFile(newPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create scenario file: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(originalPath, ".lua") {
		src, err := os.Open(originalPath)
		if err != nil {
			return "", fmt.Errorf("failed to open source lua file: %w", err)
		}
		defer src.Close()

		if _, err := io.Copy(f, src); err != nil {
			return "", fmt.Errorf("failed to copy lua content: %w", err)
		}
		return newPath, nil
	}

	if err := Write(f, s); err != nil {
		return "", fmt.Errorf("failed to write scenario: %w", err)
	}
	return newPath, nil
}

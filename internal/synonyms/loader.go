package synonyms

import (
	"encoding/json"
	"os"
	"path/filepath"

	engerrors "github.com/engramhq/engram/internal/errors"
)

// fileFormat is the on-disk synonym file shape: either a top-level array of
// groups or an object wrapping them under "groups".
type fileFormat struct {
	Groups [][]string `json:"groups"`
}

// LoadLayered builds a table from the layered sources in order: bundled
// defaults, the ENGRAM_SYNONYMS-named file, the per-store synonyms.json,
// and an explicit configuration path. Each layer merges; a missing file is
// not an error, a malformed one is.
func LoadLayered(storePath, envPath, configPath string) (*Table, error) {
	t := NewWithDefaults()

	candidates := []string{
		envPath,
		filepath.Join(storePath, "synonyms.json"),
		configPath,
	}

	for _, path := range candidates {
		if path == "" {
			continue
		}
		if err := loadFile(t, path); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// loadFile merges one synonym file into t. A missing file is silently
// skipped; an unreadable or malformed one is an error.
func loadFile(t *Table, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return engerrors.TransportError("read synonym file: "+path, err)
	}

	groups, err := parseGroups(data)
	if err != nil {
		return engerrors.Malformed("parse synonym file: "+path, err)
	}

	t.AddGroups(groups)
	return nil
}

// parseGroups accepts either `{"groups": [[...], ...]}` or a bare top-level
// array `[[...], ...]`.
func parseGroups(data []byte) ([][]string, error) {
	var asArray [][]string
	if err := json.Unmarshal(data, &asArray); err == nil {
		return asArray, nil
	}

	var wrapped fileFormat
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Groups, nil
}

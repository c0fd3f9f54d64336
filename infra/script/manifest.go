package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

const (
	manifestFile = "plugin-config.json"
	sourceFile   = "plugin.js"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

var ErrInvalidManifest = errors.New("invalid connector manifest")

// Manifest is the plugin-config.json of a script connector.
type Manifest struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Site        string `json:"site,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
}

func (m Manifest) Validate() error {
	if !idPattern.MatchString(m.ID) {
		return fmt.Errorf("%w: id %q", ErrInvalidManifest, m.ID)
	}
	if m.DisplayName == "" {
		return fmt.Errorf("%w: display_name is required", ErrInvalidManifest)
	}
	return nil
}

func readManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

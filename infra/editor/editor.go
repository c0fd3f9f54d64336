// Package editor hands a document to the user's $EDITOR through a temp copy.
package editor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// EnvEditor prepares an external editor command using $EDITOR (fallback: "vi").
// It does NOT run the editor itself; callers run the returned *exec.Cmd
// attached to the terminal.
type EnvEditor struct {
	header  string // instructions written above the content and stripped on read
	pattern string // temp file name pattern
}

// NewEnvEditor creates an EnvEditor. header should be comment lines in the
// document's syntax.
func NewEnvEditor(header, pattern string) *EnvEditor {
	if pattern == "" {
		pattern = "tapestry-*"
	}
	return &EnvEditor{header: header, pattern: pattern}
}

// FeedsHeader is written above feeds.yaml while it is being edited.
const FeedsHeader = `# Tapestry: edit your feeds below.
#
# - SAVE and EXIT to apply (e.g., :wq in vi).
# - The file is checked before it replaces the current one.
# - Making NO CHANGES cancels.

`

// Cmd prepares an *exec.Cmd for the editor and a temp file path.
// It writes the header and the provided content to the temp file.
func (e *EnvEditor) Cmd(content string) (*exec.Cmd, string, error) {
	editorCmd := strings.TrimSpace(os.Getenv("EDITOR"))
	if editorCmd == "" {
		editorCmd = "vi"
	}

	tmpFile, err := os.CreateTemp("", e.pattern)
	if err != nil {
		return nil, "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer tmpFile.Close()

	if _, err := tmpFile.WriteString(e.header + content); err != nil {
		os.Remove(tmpPath)
		return nil, "", fmt.Errorf("writing to temp file: %w", err)
	}

	cmd := exec.Command(editorCmd, tmpPath)
	return cmd, tmpPath, nil
}

// ReadContent reads the temp file, strips the header if it is still there,
// and removes the file.
func (e *EnvEditor) ReadContent(path string) (string, error) {
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading temp file: %w", err)
	}

	content := strings.TrimPrefix(string(data), e.header)
	return strings.TrimSpace(content), nil
}

package editor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

func editorCmd() string {
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	if e := os.Getenv("VISUAL"); e != "" {
		return e
	}
	return "vi"
}

func Open(filepath string) error {
	editor := editorCmd()
	// EDITOR may carry arguments, e.g. "code --wait".
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], filepath)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %q: %w", editor, err)
	}
	return nil
}

// EditText opens initial in the editor and returns the saved text with
// surrounding whitespace trimmed.
func EditText(initial string) (string, error) {
	f, err := os.CreateTemp("", "todos-*.txt")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(initial + "\n"); err != nil {
		f.Close()
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	if err := Open(path); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading edited text: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

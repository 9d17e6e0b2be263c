package markdown

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

const delimiter = "---\n"

// Parse reads YAML frontmatter and the trailing note from r into T.
func Parse[T any](r io.Reader) (T, string, error) {
	var meta T
	rest, err := frontmatter.Parse(r, &meta)
	if err != nil {
		return meta, "", fmt.Errorf("parsing frontmatter: %w", err)
	}
	return meta, strings.TrimSpace(string(rest)), nil
}

// Encode writes meta as YAML frontmatter to w, followed by note if non-empty.
func Encode(w io.Writer, meta any, note string) error {
	yamlBytes, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(delimiter)
	buf.Write(yamlBytes)
	buf.WriteString(delimiter)
	if note != "" {
		buf.WriteString("\n" + strings.TrimRight(note, "\n") + "\n")
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// Marshal is Encode into a byte slice.
func Marshal(meta any, note string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, meta, note); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

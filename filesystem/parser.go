// filesystem/parser.go
package filesystem

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/ViniZap4/notes-server/domain"
)

const delimiter = "---"

var errNoFrontmatter = errors.New("missing frontmatter")

// ReadNote parses a markdown file with YAML frontmatter. The body becomes
// the note description.
func ReadNote(path string) (domain.Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Note{}, err
	}
	return ParseNote(data)
}

func ParseNote(data []byte) (domain.Note, error) {
	data = bytes.TrimLeft(data, "\ufeff \t\r\n")
	if !bytes.HasPrefix(data, []byte(delimiter)) {
		return domain.Note{}, errNoFrontmatter
	}

	parts := bytes.SplitN(data[len(delimiter):], []byte("\n"+delimiter), 2)
	if len(parts) < 2 {
		return domain.Note{}, errNoFrontmatter
	}

	var n domain.Note
	if err := yaml.Unmarshal(parts[0], &n); err != nil {
		return domain.Note{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	n.Description = string(bytes.TrimSpace(parts[1]))
	return n, nil
}

// WriteNote writes n to path as frontmatter followed by the description.
func WriteNote(path string, n domain.Note) error {
	data, err := FormatNote(n)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func FormatNote(n domain.Note) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(n); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	encoder.Close()

	buf.WriteString(delimiter + "\n\n")
	buf.WriteString(n.Description)
	if n.Description != "" && !strings.HasSuffix(n.Description, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug turns a title into a lower-case file name stem: accents are
// stripped and runs of anything but letters and digits become one dash.
func Slug(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

package markdown

import (
	"log"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Document is the result of splitting a source file into front-matter
// metadata and markdown body.
type Document struct {
	Frontmatter map[string]any
	Markdown    string
}

// ParseFrontmatter splits raw document text into a YAML front-matter mapping
// and the remaining markdown body.
//
// Only a block opening on the very first line counts as front-matter; later
// "---" delimited text stays in the body untouched, so the first block
// always wins. Malformed YAML never fails the call: whatever keys decoded
// survive and the body is still returned.
func ParseFrontmatter(src string) Document {
	raw, body, ok := splitFrontmatter(src)
	doc := Document{Frontmatter: map[string]any{}, Markdown: body}
	if !ok {
		return doc
	}
	meta := map[string]any{}
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		log.Printf("markdown: malformed frontmatter, keeping partial metadata: %v", err)
	}
	if meta != nil {
		doc.Frontmatter = meta
	}
	return doc
}

// splitFrontmatter returns the raw YAML block and the body after the closing
// delimiter. ok is false when the document has no leading front-matter block,
// in which case body is the input unchanged. An unterminated block is treated
// as ordinary body text.
func splitFrontmatter(src string) (raw []byte, body string, ok bool) {
	lines := strings.SplitAfter(src, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r\n") != delimiter {
		return nil, src, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r\n") == delimiter {
			raw = []byte(strings.Join(lines[1:i], ""))
			body = strings.Join(lines[i+1:], "")
			return raw, body, true
		}
	}
	return nil, src, false
}

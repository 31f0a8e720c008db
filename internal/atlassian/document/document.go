// Package document converts between plain text and the per-deployment
// body formats the Atlassian products expect: Atlassian Document
// Format objects for Cloud, plain strings for Server/DC, and storage
// XHTML for Confluence pages.
package document

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dverbeek/agent-skills/internal/atlassian"
)

// Doc is the root of an Atlassian Document Format payload.
type Doc struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Content []Node `json:"content"`
}

// Node is a single ADF content node.
type Node struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
}

// Format renders text in the body format for the given deployment:
// an ADF document for Cloud, the string unchanged for Server/DC.
func Format(text string, deployment atlassian.Deployment) any {
	if deployment == atlassian.DeploymentCloud {
		return ADF(text)
	}
	return text
}

// ADF builds an ADF document from plain text. Blank lines separate
// paragraphs; fenced blocks (``` or {code}) become code blocks and
// runs of "- "/"* " lines become bullet lists. Anything else passes
// through as plain text nodes.
func ADF(text string) *Doc {
	doc := &Doc{Type: "doc", Version: 1, Content: []Node{}}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i := 0; i < len(lines); {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case trimmed == "":
			i++

		case isFence(trimmed):
			lang := fenceLanguage(trimmed)
			var code []string
			i++
			for i < len(lines) && !isFence(strings.TrimSpace(lines[i])) {
				code = append(code, lines[i])
				i++
			}
			if i < len(lines) {
				i++ // closing fence
			}
			doc.Content = append(doc.Content, codeBlock(lang, strings.Join(code, "\n")))

		case isBullet(trimmed):
			var items []Node
			for i < len(lines) && isBullet(strings.TrimSpace(lines[i])) {
				item := strings.TrimSpace(lines[i])[2:]
				items = append(items, Node{
					Type:    "listItem",
					Content: []Node{paragraph(strings.TrimSpace(item))},
				})
				i++
			}
			doc.Content = append(doc.Content, Node{Type: "bulletList", Content: items})

		default:
			var para []string
			for i < len(lines) {
				t := strings.TrimSpace(lines[i])
				if t == "" || isFence(t) || isBullet(t) {
					break
				}
				para = append(para, lines[i])
				i++
			}
			doc.Content = append(doc.Content, paragraphLines(para))
		}
	}

	if len(doc.Content) == 0 {
		doc.Content = []Node{{Type: "paragraph"}}
	}
	return doc
}

func isFence(line string) bool {
	return strings.HasPrefix(line, "```") || strings.HasPrefix(line, "{code")
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ")
}

func fenceLanguage(line string) string {
	if lang, ok := strings.CutPrefix(line, "```"); ok {
		return strings.TrimSpace(lang)
	}
	// {code:go} style
	if rest, ok := strings.CutPrefix(line, "{code:"); ok {
		return strings.TrimSuffix(strings.TrimSpace(rest), "}")
	}
	return ""
}

func codeBlock(lang, code string) Node {
	node := Node{
		Type:    "codeBlock",
		Content: []Node{{Type: "text", Text: code}},
	}
	if lang != "" {
		node.Attrs = map[string]any{"language": lang}
	}
	if code == "" {
		node.Content = nil
	}
	return node
}

func paragraph(text string) Node {
	if text == "" {
		return Node{Type: "paragraph"}
	}
	return Node{Type: "paragraph", Content: []Node{{Type: "text", Text: text}}}
}

// paragraphLines joins consecutive non-blank lines into one paragraph
// with hard breaks between them.
func paragraphLines(lines []string) Node {
	var content []Node
	for i, line := range lines {
		if i > 0 {
			content = append(content, Node{Type: "hardBreak"})
		}
		content = append(content, Node{Type: "text", Text: line})
	}
	return Node{Type: "paragraph", Content: content}
}

// ADFToText flattens an ADF payload (as decoded JSON) back to plain
// text for terminal display. Non-ADF values pass through: strings are
// returned as-is, which covers Server responses.
func ADFToText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	var b strings.Builder
	walk(v, &b)

	result := b.String()
	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(result)
}

func walk(v any, b *strings.Builder) {
	node, ok := v.(map[string]any)
	if !ok {
		return
	}
	nodeType, _ := node["type"].(string)

	switch nodeType {
	case "text":
		if s, ok := node["text"].(string); ok {
			b.WriteString(s)
		}
	case "hardBreak":
		b.WriteString("\n")
	case "mention", "emoji", "status":
		if attrs, ok := node["attrs"].(map[string]any); ok {
			if s, ok := attrs["text"].(string); ok {
				b.WriteString(s)
			}
		}
	case "listItem":
		b.WriteString("- ")
	case "rule":
		b.WriteString("---\n")
	}

	if content, ok := node["content"].([]any); ok {
		for _, child := range content {
			walk(child, b)
		}
	}

	switch nodeType {
	case "paragraph", "heading", "codeBlock", "blockquote":
		b.WriteString("\n\n")
	}
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering for terminal
// display. Used for renderedFields and Confluence view bodies.
func StripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>", "</tr>", "</h1>", "</h2>", "</h3>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(result)
}

// StorageHTML renders plain text as Confluence storage format. Blank
// lines separate paragraphs; single newlines become <br/>.
func StorageHTML(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	escaper := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)

	var b strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		escaped := escaper.Replace(para)
		escaped = strings.ReplaceAll(escaped, "\n", "<br/>")
		fmt.Fprintf(&b, "<p>%s</p>", escaped)
	}
	if b.Len() == 0 {
		return "<p></p>"
	}
	return b.String()
}

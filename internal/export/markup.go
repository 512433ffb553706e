package export

import (
	"html"
	"strings"
)

// TextToHTML converts material text into HTML. Recognized: "#" to "###"
// headings, "-" or "*" bullet items, **bold** spans, blank-line separated
// paragraphs. Everything else is escaped.
func TextToHTML(text string) string {
	var out strings.Builder
	var paragraph []string
	inList := false

	flushParagraph := func() {
		if len(paragraph) == 0 {
			return
		}
		out.WriteString("<p>")
		out.WriteString(strings.Join(paragraph, "<br>"))
		out.WriteString("</p>")
		paragraph = paragraph[:0]
	}
	closeList := func() {
		if inList {
			out.WriteString("</ul>")
			inList = false
		}
	}

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			flushParagraph()
			closeList()
		case headingLevel(line) > 0:
			flushParagraph()
			closeList()
			level := headingLevel(line)
			tag := "h" + string(rune('0'+level))
			out.WriteString("<" + tag + ">")
			out.WriteString(inline(strings.TrimSpace(line[level:])))
			out.WriteString("</" + tag + ">")
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
			flushParagraph()
			if !inList {
				out.WriteString("<ul>")
				inList = true
			}
			out.WriteString("<li>")
			out.WriteString(inline(strings.TrimSpace(line[2:])))
			out.WriteString("</li>")
		default:
			closeList()
			paragraph = append(paragraph, inline(line))
		}
	}
	flushParagraph()
	closeList()
	return out.String()
}

func headingLevel(line string) int {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 3 || level >= len(line) || line[level] != ' ' {
		return 0
	}
	return level
}

// inline escapes text and turns **x** into <strong>x</strong>.
func inline(text string) string {
	parts := strings.Split(text, "**")
	if len(parts)%2 == 0 {
		// unbalanced markers stay literal
		return html.EscapeString(text)
	}
	var b strings.Builder
	for i, part := range parts {
		if i%2 == 1 {
			b.WriteString("<strong>" + html.EscapeString(part) + "</strong>")
			continue
		}
		b.WriteString(html.EscapeString(part))
	}
	return b.String()
}

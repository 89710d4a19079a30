package pages

import (
	"regexp"
	"strings"
)

// richTextMaxChars caps a single rich-text object; the API rejects
// longer values.
const richTextMaxChars = 1950

// Block is a page block in the shape the append-children API expects.
// The Type field names which payload key is populated.
type Block map[string]any

type richText struct {
	Type        string         `json:"type"`
	Text        textContent    `json:"text"`
	Annotations map[string]any `json:"annotations,omitempty"`
}

type textContent struct {
	Content string `json:"content"`
}

var (
	headingRe     = regexp.MustCompile(`^(#{1,4})\s+(.+)`)
	dividerRe     = regexp.MustCompile(`^(-{3,}|_{3,}|\*{3,})$`)
	bulletRe      = regexp.MustCompile(`^[-*+]\s+`)
	orderedRe     = regexp.MustCompile(`^\d+\.\s+`)
	codeFenceRe   = regexp.MustCompile("^```(\\w*)")
	tableSepRe    = regexp.MustCompile(`^\|[\s\-|:]+\|$`)
	inlineTokenRe = regexp.MustCompile("(?s)\\*\\*\\*(.+?)\\*\\*\\*|\\*\\*(.+?)\\*\\*|\\*(.+?)\\*|~~(.+?)~~|`(.+?)`|([^`*~]+)")
)

// MarkdownToBlocks converts a markdown document into a flat list of
// page blocks: headings, paragraphs, lists, fenced code, quotes,
// dividers, and tables.
func MarkdownToBlocks(markdown string) []Block {
	var blocks []Block
	lines := strings.Split(markdown, "\n")
	idx := 0

	for idx < len(lines) {
		line := strings.TrimSpace(lines[idx])
		switch {
		case line == "":
			idx++

		case codeFenceRe.MatchString(line):
			lang := codeFenceRe.FindStringSubmatch(line)[1]
			if lang == "" {
				lang = "plain text"
			}
			var codeLines []string
			idx++
			for idx < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[idx]), "```") {
				codeLines = append(codeLines, lines[idx])
				idx++
			}
			idx++ // closing fence
			blocks = append(blocks, codeBlock(strings.Join(codeLines, "\n"), lang))

		case dividerRe.MatchString(line):
			blocks = append(blocks, Block{"object": "block", "type": "divider", "divider": map[string]any{}})
			idx++

		case headingRe.MatchString(line):
			m := headingRe.FindStringSubmatch(line)
			level := min(len(m[1]), 3) // the API only has h1-h3
			blocks = append(blocks, headingBlock(level, strings.TrimSpace(m[2])))
			idx++

		case strings.HasPrefix(line, "|"):
			var rows [][]string
			for idx < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[idx]), "|") {
				row := strings.TrimSpace(lines[idx])
				idx++
				if tableSepRe.MatchString(row) {
					continue
				}
				cells := splitTableCells(row)
				if len(cells) > 0 {
					rows = append(rows, cells)
				}
			}
			if len(rows) > 0 {
				blocks = append(blocks, tableBlock(rows))
			}

		case strings.HasPrefix(line, "> "):
			blocks = append(blocks, richBlock("quote", strings.TrimSpace(line[2:])))
			idx++

		case bulletRe.MatchString(line):
			blocks = append(blocks, richBlock("bulleted_list_item", bulletRe.ReplaceAllString(line, "")))
			idx++

		case orderedRe.MatchString(line):
			blocks = append(blocks, richBlock("numbered_list_item", orderedRe.ReplaceAllString(line, "")))
			idx++

		default:
			// Consecutive plain lines fold into one paragraph.
			var para []string
			for idx < len(lines) {
				peek := strings.TrimSpace(lines[idx])
				if peek == "" || headingRe.MatchString(peek) || strings.HasPrefix(peek, "|") ||
					strings.HasPrefix(peek, "> ") || bulletRe.MatchString(peek) ||
					orderedRe.MatchString(peek) || dividerRe.MatchString(peek) ||
					strings.HasPrefix(peek, "```") {
					break
				}
				para = append(para, peek)
				idx++
			}
			if len(para) > 0 {
				blocks = append(blocks, richBlock("paragraph", strings.Join(para, " ")))
			}
		}
	}

	return blocks
}

func richBlock(kind, text string) Block {
	return Block{
		"object": "block",
		"type":   kind,
		kind:     map[string]any{"rich_text": parseInline(text)},
	}
}

func headingBlock(level int, text string) Block {
	kind := "heading_1"
	switch level {
	case 2:
		kind = "heading_2"
	case 3:
		kind = "heading_3"
	}
	return richBlock(kind, text)
}

func codeBlock(code, lang string) Block {
	var rt []richText
	for _, chunk := range splitLongText(code) {
		rt = append(rt, richText{Type: "text", Text: textContent{Content: chunk}})
	}
	return Block{
		"object": "block",
		"type":   "code",
		"code":   map[string]any{"rich_text": rt, "language": lang},
	}
}

func tableBlock(rows [][]string) Block {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	var tableRows []Block
	for _, row := range rows {
		cells := make([][]richText, width)
		for i := range cells {
			cell := ""
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			cells[i] = parseInline(cell)
		}
		tableRows = append(tableRows, Block{
			"object":    "block",
			"type":      "table_row",
			"table_row": map[string]any{"cells": cells},
		})
	}
	return Block{
		"object": "block",
		"type":   "table",
		"table": map[string]any{
			"table_width":       width,
			"has_column_header": true,
			"has_row_header":    false,
			"children":          tableRows,
		},
	}
}

// parseInline maps **bold**, *italic*, ~~strike~~, and `code` spans to
// rich-text annotations. Long plain runs are split to stay under the
// per-object character cap.
func parseInline(text string) []richText {
	if text == "" {
		return []richText{{Type: "text", Text: textContent{}}}
	}
	var items []richText
	for _, m := range inlineTokenRe.FindAllStringSubmatch(text, -1) {
		var content string
		var annotations map[string]any
		switch {
		case m[1] != "":
			content = m[1]
			annotations = map[string]any{"bold": true, "italic": true}
		case m[2] != "":
			content = m[2]
			annotations = map[string]any{"bold": true}
		case m[3] != "":
			content = m[3]
			annotations = map[string]any{"italic": true}
		case m[4] != "":
			content = m[4]
			annotations = map[string]any{"strikethrough": true}
		case m[5] != "":
			content = m[5]
			annotations = map[string]any{"code": true}
		case m[6] != "":
			content = m[6]
		default:
			continue
		}
		for _, chunk := range splitLongText(content) {
			items = append(items, richText{Type: "text", Text: textContent{Content: chunk}, Annotations: annotations})
		}
	}
	if len(items) == 0 {
		return []richText{{Type: "text", Text: textContent{}}}
	}
	return items
}

// splitLongText breaks text into chunks of at most richTextMaxChars,
// preferring whitespace boundaries.
func splitLongText(text string) []string {
	if len(text) <= richTextMaxChars {
		return []string{text}
	}
	var chunks []string
	for len(text) > richTextMaxChars {
		splitAt := strings.LastIndex(text[:richTextMaxChars], " ")
		if splitAt <= 0 {
			splitAt = richTextMaxChars
		}
		chunks = append(chunks, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func splitTableCells(row string) []string {
	var cells []string
	for _, cell := range strings.Split(row, "|") {
		cell = strings.TrimSpace(cell)
		if cell != "" {
			cells = append(cells, cell)
		}
	}
	return cells
}

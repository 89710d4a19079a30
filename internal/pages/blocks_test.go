package pages

import (
	"strings"
	"testing"
)

func blockType(b Block) string {
	t, _ := b["type"].(string)
	return t
}

func TestMarkdownToBlocks_BasicConstructs(t *testing.T) {
	md := strings.Join([]string{
		"# Title",
		"",
		"A paragraph that spans",
		"two source lines.",
		"",
		"- first item",
		"- second item",
		"",
		"1. step one",
		"",
		"> a quote",
		"",
		"---",
	}, "\n")

	blocks := MarkdownToBlocks(md)
	want := []string{
		"heading_1",
		"paragraph",
		"bulleted_list_item",
		"bulleted_list_item",
		"numbered_list_item",
		"quote",
		"divider",
	}
	if len(blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d", len(want), len(blocks))
	}
	for i, w := range want {
		if blockType(blocks[i]) != w {
			t.Errorf("block %d: got %s, want %s", i, blockType(blocks[i]), w)
		}
	}
}

func TestMarkdownToBlocks_HeadingLevelCapped(t *testing.T) {
	blocks := MarkdownToBlocks("#### Deep Heading")
	if len(blocks) != 1 || blockType(blocks[0]) != "heading_3" {
		t.Fatalf("h4 must map to heading_3, got %v", blocks)
	}
}

func TestMarkdownToBlocks_Table(t *testing.T) {
	md := strings.Join([]string{
		"| Item | Price |",
		"|------|-------|",
		"| SSO  | $99   |",
	}, "\n")

	blocks := MarkdownToBlocks(md)
	if len(blocks) != 1 || blockType(blocks[0]) != "table" {
		t.Fatalf("expected one table block, got %v", blocks)
	}
	table := blocks[0]["table"].(map[string]any)
	if table["table_width"] != 2 {
		t.Errorf("table width = %v, want 2", table["table_width"])
	}
	rows := table["children"].([]Block)
	if len(rows) != 2 {
		t.Errorf("separator row must be dropped: got %d rows", len(rows))
	}
}

func TestMarkdownToBlocks_CodeFence(t *testing.T) {
	md := "```go\nfmt.Println(\"hi\")\n```"
	blocks := MarkdownToBlocks(md)
	if len(blocks) != 1 || blockType(blocks[0]) != "code" {
		t.Fatalf("expected one code block, got %v", blocks)
	}
	code := blocks[0]["code"].(map[string]any)
	if code["language"] != "go" {
		t.Errorf("language = %v", code["language"])
	}
}

func TestParseInline_Annotations(t *testing.T) {
	items := parseInline("plain **bold** and `code`")
	if len(items) != 4 {
		t.Fatalf("expected 4 rich-text items, got %d: %+v", len(items), items)
	}
	if items[1].Text.Content != "bold" || items[1].Annotations["bold"] != true {
		t.Errorf("bold span wrong: %+v", items[1])
	}
	if items[3].Text.Content != "code" || items[3].Annotations["code"] != true {
		t.Errorf("code span wrong: %+v", items[3])
	}
}

func TestSplitLongText(t *testing.T) {
	long := strings.Repeat("word ", 1000) // ~5000 chars
	chunks := splitLongText(long)
	if len(chunks) < 2 {
		t.Fatalf("long text must be split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > richTextMaxChars {
			t.Errorf("chunk %d exceeds cap: %d chars", i, len(c))
		}
	}
}

func TestPageURL_StripsDashes(t *testing.T) {
	got := PageURL("abc-123-def")
	if got != "https://notion.so/abc123def" {
		t.Errorf("PageURL = %q", got)
	}
}

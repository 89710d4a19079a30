package pages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	apiVersion      = "2022-06-28"
	listPageSize    = 100
	maxBlocksPerReq = 95
	requestInterval = 400 * time.Millisecond
	maxRetries      = 5
	backoffBase     = 1500 * time.Millisecond
)

// Client talks to a Notion-compatible pages API. It lists child pages
// under a parent block and publishes rendered documents as new pages.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "https://api.notion.com/v1"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Page is one discovered child page.
type Page struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// PublishResult reports where a published document landed.
type PublishResult struct {
	PageID       string `json:"page_id"`
	PageURL      string `json:"page_url"`
	BlocksPushed int    `json:"blocks_pushed"`
}

// PageURL builds the browser URL for a page ID. Page URLs use the
// dash-free form of the ID.
func PageURL(pageID string) string {
	return "https://notion.so/" + strings.ReplaceAll(pageID, "-", "")
}

type blockChildrenResponse struct {
	Results []struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		ChildPage struct {
			Title string `json:"title"`
		} `json:"child_page"`
	} `json:"results"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

// ListChildPages walks the block tree under blockID and returns every
// child page found, depth first. Pagination is followed per level.
func (c *Client) ListChildPages(ctx context.Context, blockID string) ([]Page, error) {
	var pages []Page
	if err := c.listChildPages(ctx, blockID, &pages); err != nil {
		return pages, err
	}
	return pages, nil
}

func (c *Client) listChildPages(ctx context.Context, blockID string, pages *[]Page) error {
	cursor := ""
	for {
		u := fmt.Sprintf("%s/blocks/%s/children?page_size=%d", c.baseURL, blockID, listPageSize)
		if cursor != "" {
			u += "&start_cursor=" + cursor
		}
		var resp blockChildrenResponse
		if err := c.doJSON(ctx, http.MethodGet, u, nil, &resp); err != nil {
			return fmt.Errorf("list children %s: %w", blockID, err)
		}
		for _, item := range resp.Results {
			if item.Type != "child_page" {
				continue
			}
			title := item.ChildPage.Title
			if title == "" {
				title = c.titleFromWeb(ctx, PageURL(item.ID))
			}
			*pages = append(*pages, Page{ID: item.ID, Title: title, URL: PageURL(item.ID)})
			if err := c.listChildPages(ctx, item.ID, pages); err != nil {
				return err
			}
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return nil
		}
		cursor = resp.NextCursor
	}
}

// titleFromWeb fetches the public page and pulls the <title> element.
// Used when the API omits the page title. Failures yield "".
func (c *Client) titleFromWeb(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	doc, err := html.Parse(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ""
	}
	return findTitle(doc)
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		var sb strings.Builder
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.TextNode {
				sb.WriteString(child.Data)
			}
		}
		return strings.TrimSpace(sb.String())
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if title := findTitle(child); title != "" {
			return title
		}
	}
	return ""
}

// PublishMarkdown creates a child page under parentID titled title and
// appends the document converted to page blocks. The append API caps
// each request at maxBlocksPerReq blocks and rate-limits aggressively,
// so pushes are chunked with a fixed inter-request pause and an
// exponential backoff on 429.
func (c *Client) PublishMarkdown(ctx context.Context, parentID, title, markdown string) (*PublishResult, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, fmt.Errorf("nothing to publish: document is empty")
	}
	if strings.TrimSpace(parentID) == "" {
		return nil, fmt.Errorf("parent page id must be provided")
	}
	if strings.TrimSpace(title) == "" {
		title = "Untitled Document"
	}

	pageID, pageURL, err := c.createPage(ctx, parentID, title)
	if err != nil {
		return nil, err
	}

	blocks := MarkdownToBlocks(markdown)
	pushed := 0
	for start := 0; start < len(blocks); start += maxBlocksPerReq {
		end := min(start+maxBlocksPerReq, len(blocks))
		if err := c.appendBlocks(ctx, pageID, blocks[start:end]); err != nil {
			return nil, fmt.Errorf("append blocks %d-%d: %w", start, end-1, err)
		}
		pushed += end - start
	}

	return &PublishResult{PageID: pageID, PageURL: pageURL, BlocksPushed: pushed}, nil
}

func (c *Client) createPage(ctx context.Context, parentID, title string) (string, string, error) {
	body := map[string]any{
		"parent": map[string]any{"page_id": parentID},
		"properties": map[string]any{
			"title": map[string]any{
				"title": []any{
					map[string]any{"type": "text", "text": map[string]any{"content": title}},
				},
			},
		},
	}
	var resp struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/pages", body, &resp); err != nil {
		return "", "", fmt.Errorf("create page: %w", err)
	}
	u := resp.URL
	if u == "" {
		u = PageURL(resp.ID)
	}
	return resp.ID, u, nil
}

func (c *Client) appendBlocks(ctx context.Context, pageID string, blocks []Block) error {
	body := map[string]any{"children": blocks}
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := c.doJSON(ctx, http.MethodPatch, c.baseURL+"/blocks/"+pageID+"/children", body, nil)
		if err == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(requestInterval):
			}
			return nil
		}
		lastErr = err
		if !strings.Contains(err.Error(), "status 429") {
			return err
		}
		wait := backoffBase * (1 << attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return lastErr
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

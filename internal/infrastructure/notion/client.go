package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prompt-courier/internal/domain"
)

const apiVersion = "2022-06-28"

// Client is a minimal Notion REST client covering what the delivery engine
// needs: querying a database by date, reading a page's block content, and
// appending a reply block. Tokens are per-user and passed per call.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		// External calls carry a bounded timeout; retries belong to the
		// sweep invoker, not here.
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Page is a database entry candidate for a delivery date.
type Page struct {
	ID             string
	Title          string
	LastEditedTime time.Time
}

// Block is one unit of page content reduced to plain text.
type Block struct {
	Type string
	Text string
}

type richText struct {
	PlainText string `json:"plain_text"`
}

func joinRichText(rts []richText) string {
	var out string
	for _, rt := range rts {
		out += rt.PlainText
	}
	return out
}

// QueryByDate returns the database pages whose date property equals the given
// local date ("2006-01-02").
func (c *Client) QueryByDate(ctx context.Context, token, databaseID, date string) ([]Page, error) {
	body := map[string]interface{}{
		"filter": map[string]interface{}{
			"property": "Date",
			"date":     map[string]string{"equals": date},
		},
	}
	var resp struct {
		Results []struct {
			ID             string    `json:"id"`
			LastEditedTime time.Time `json:"last_edited_time"`
			Properties     map[string]struct {
				Type  string     `json:"type"`
				Title []richText `json:"title"`
			} `json:"properties"`
		} `json:"results"`
	}
	url := fmt.Sprintf("%s/v1/databases/%s/query", c.baseURL, databaseID)
	if err := c.do(ctx, http.MethodPost, url, token, body, &resp); err != nil {
		return nil, err
	}
	pages := make([]Page, 0, len(resp.Results))
	for _, res := range resp.Results {
		p := Page{ID: res.ID, LastEditedTime: res.LastEditedTime}
		for _, prop := range res.Properties {
			if prop.Type == "title" {
				p.Title = joinRichText(prop.Title)
				break
			}
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// PageBlocks returns the page's child blocks reduced to plain text. Only
// paragraph, bulleted and numbered list items carry prompt content; other
// block types come back with empty text and are skipped by the caller.
func (c *Client) PageBlocks(ctx context.Context, token, pageID string) ([]Block, error) {
	var resp struct {
		Results []json.RawMessage `json:"results"`
	}
	url := fmt.Sprintf("%s/v1/blocks/%s/children?page_size=100", c.baseURL, pageID)
	if err := c.do(ctx, http.MethodGet, url, token, nil, &resp); err != nil {
		return nil, err
	}
	blocks := make([]Block, 0, len(resp.Results))
	for _, raw := range resp.Results {
		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			continue
		}
		b := Block{Type: envelope.Type}
		switch envelope.Type {
		case "paragraph", "bulleted_list_item", "numbered_list_item":
			var content map[string]struct {
				RichText []richText `json:"rich_text"`
			}
			if err := json.Unmarshal(raw, &content); err == nil {
				b.Text = joinRichText(content[envelope.Type].RichText)
			}
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// AppendParagraph appends a single paragraph block to the end of a page.
func (c *Client) AppendParagraph(ctx context.Context, token, pageID, text string) error {
	body := map[string]interface{}{
		"children": []map[string]interface{}{
			{
				"object": "block",
				"type":   "paragraph",
				"paragraph": map[string]interface{}{
					"rich_text": []map[string]interface{}{
						{"type": "text", "text": map[string]string{"content": text}},
					},
				},
			},
		},
	}
	url := fmt.Sprintf("%s/v1/blocks/%s/children", c.baseURL, pageID)
	return c.do(ctx, http.MethodPatch, url, token, body, nil)
}

func (c *Client) do(ctx context.Context, method, url, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal notion request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notion unreachable: %w", domain.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("notion object not found: %w", domain.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("notion token rejected: %w", domain.ErrUnauthorized)
	case resp.StatusCode >= 500:
		return fmt.Errorf("notion returned %d: %w", resp.StatusCode, domain.ErrUnavailable)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notion returned %d: %s: %w", resp.StatusCode, msg, domain.ErrBadRequest)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode notion response: %w", err)
		}
	}
	return nil
}

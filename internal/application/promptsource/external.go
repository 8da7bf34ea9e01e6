package promptsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/prompt-courier/internal/domain"
	"github.com/prompt-courier/internal/infrastructure/notion"
)

// ReplyMarker prefixes reply blocks appended to external documents.
const ReplyMarker = "Reply: "

// DocumentAPI is the slice of the Notion client the external variant uses.
type DocumentAPI interface {
	QueryByDate(ctx context.Context, token, databaseID, date string) ([]notion.Page, error)
	PageBlocks(ctx context.Context, token, pageID string) ([]notion.Block, error)
	AppendParagraph(ctx context.Context, token, pageID, text string) error
}

// ExternalSource serves prompts from a user-connected Notion database.
type ExternalSource struct {
	api DocumentAPI
}

func NewExternalSource(api DocumentAPI) *ExternalSource {
	return &ExternalSource{api: api}
}

// FetchDue queries the database for entries on the given date, disambiguates
// by slot keyword in the title, and flattens the winning page's blocks into a
// prompt body.
func (s *ExternalSource) FetchDue(ctx context.Context, cfg *domain.DeliveryConfig, date string, slot domain.Slot) (*Item, error) {
	pages, err := s.api.QueryByDate(ctx, cfg.NotionToken, cfg.NotionDatabaseID, date)
	if err != nil {
		return nil, err
	}
	page := pickPage(pages, slot)
	if page == nil {
		return nil, fmt.Errorf("no %s entry for %s: %w", slot, date, domain.ErrNotFound)
	}
	blocks, err := s.api.PageBlocks(ctx, cfg.NotionToken, page.ID)
	if err != nil {
		return nil, err
	}
	return &Item{ID: page.ID, Topic: page.Title, Body: flattenBlocks(blocks)}, nil
}

// AppendReply appends the reply as a trailing text block, prefixed with the
// literal reply marker.
func (s *ExternalSource) AppendReply(ctx context.Context, cfg *domain.DeliveryConfig, itemID, reply string) error {
	return s.api.AppendParagraph(ctx, cfg.NotionToken, itemID, ReplyMarker+reply)
}

// pickPage selects the page whose title contains the slot keyword
// (case-insensitive). Ties go to the most recently edited page.
func pickPage(pages []notion.Page, slot domain.Slot) *notion.Page {
	keyword := string(slot)
	var best *notion.Page
	for i := range pages {
		if !strings.Contains(strings.ToLower(pages[i].Title), keyword) {
			continue
		}
		if best == nil || pages[i].LastEditedTime.After(best.LastEditedTime) {
			best = &pages[i]
		}
	}
	return best
}

// flattenBlocks joins the plain text of content blocks with blank-line
// separation, skipping empty ones.
func flattenBlocks(blocks []notion.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

package paperless

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"papertriage/internal/logging"
)

// Document is one archive document with extracted text.
type Document struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    []int  `json:"tags"`
}

// HasTag reports whether the document already carries the tag.
func (d Document) HasTag(tagID int) bool {
	return slices.Contains(d.Tags, tagID)
}

type documentPage struct {
	Count   int        `json:"count"`
	Next    string     `json:"next"`
	Results []Document `json:"results"`
}

// ListFilter narrows the document listing. UntaggedOnly asks the archive for
// documents with no tags at all; ExcludeTagIDs excludes documents carrying
// any of the given tags. UntaggedOnly wins when both are set.
type ListFilter struct {
	ExcludeTagIDs []int
	UntaggedOnly  bool
}

// FetchDocuments pages through the document list until max documents are
// collected or the listing is exhausted. Documents whose extracted text is
// empty or whitespace-only are filtered at the source.
func (c *Client) FetchDocuments(ctx context.Context, max, pageSize int, filter ListFilter) ([]Document, error) {
	if pageSize <= 0 {
		pageSize = 25
	}

	query := url.Values{}
	query.Set("page_size", strconv.Itoa(pageSize))
	query.Set("ordering", "created")
	switch {
	case filter.UntaggedOnly:
		query.Set("is_tagged", "false")
	case len(filter.ExcludeTagIDs) > 0:
		ids := make([]string, 0, len(filter.ExcludeTagIDs))
		for _, id := range filter.ExcludeTagIDs {
			ids = append(ids, strconv.Itoa(id))
		}
		query.Set("tags__id__none", strings.Join(ids, ","))
	}
	next := c.baseURL + "/api/documents/?" + query.Encode()

	var documents []Document
	for next != "" && (max <= 0 || len(documents) < max) {
		var page documentPage
		if err := c.getJSON(ctx, "fetch documents", next, &page); err != nil {
			return nil, err
		}
		for _, doc := range page.Results {
			if strings.TrimSpace(doc.Content) == "" {
				continue
			}
			documents = append(documents, doc)
			if max > 0 && len(documents) >= max {
				break
			}
		}
		next = page.Next
	}

	c.logger.Debug("fetched documents", logging.Int("count", len(documents)))
	return documents, nil
}

// GetDocument fetches one document with full detail.
func (c *Client) GetDocument(ctx context.Context, id int) (Document, error) {
	var doc Document
	url := fmt.Sprintf("%s/api/documents/%d/", c.baseURL, id)
	if err := c.getJSON(ctx, fmt.Sprintf("get document %d", id), url, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Tag adds tagID to the document. The call is idempotent: when the document
// already carries the tag no write is issued.
func (c *Client) Tag(ctx context.Context, id, tagID int, csrfToken string) error {
	doc, err := c.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc.HasTag(tagID) {
		return nil
	}

	tags := append(slices.Clone(doc.Tags), tagID)
	payload := map[string]any{"tags": tags}
	url := fmt.Sprintf("%s/api/documents/%d/", c.baseURL, id)
	return c.sendJSON(ctx, fmt.Sprintf("tag document %d", id), "PATCH", url, payload, csrfToken, nil)
}

// UpdateTitle patches the document title and verifies it by re-fetching.
// The returned bool reports whether the stored title matches what was sent.
func (c *Client) UpdateTitle(ctx context.Context, id int, title, csrfToken string) (bool, error) {
	payload := map[string]any{"title": title}
	url := fmt.Sprintf("%s/api/documents/%d/", c.baseURL, id)
	if err := c.sendJSON(ctx, fmt.Sprintf("update title %d", id), "PATCH", url, payload, csrfToken, nil); err != nil {
		return false, err
	}

	doc, err := c.GetDocument(ctx, id)
	if err != nil {
		return false, fmt.Errorf("verify title %d: %w", id, err)
	}
	return doc.Title == title, nil
}

// BulkModifyTags adds and removes tags across several documents in one call.
func (c *Client) BulkModifyTags(ctx context.Context, documentIDs, addTags, removeTags []int, csrfToken string) error {
	if len(documentIDs) == 0 {
		return nil
	}
	payload := map[string]any{
		"documents": documentIDs,
		"method":    "modify_tags",
		"parameters": map[string]any{
			"add_tags":    orEmpty(addTags),
			"remove_tags": orEmpty(removeTags),
		},
	}
	url := c.baseURL + "/api/documents/bulk_edit/"
	return c.sendJSON(ctx, "bulk modify tags", "POST", url, payload, csrfToken, nil)
}

func orEmpty(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"

	"github.com/veertikothari/campustrack/internal/entity"
	"github.com/veertikothari/campustrack/pkg/sanitize"
)

const eventsIndex = "events"

// EventIndex is the full-text index over events.
type EventIndex interface {
	IndexEvent(ctx context.Context, event *entity.Event) error
	Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error)
}

type meiliEventIndex struct {
	client meilisearch.ServiceManager
}

func NewMeiliEventIndex(client meilisearch.ServiceManager) EventIndex {
	s := &meiliEventIndex{client: client}
	s.initIndex()
	return s
}

func (s *meiliEventIndex) initIndex() {
	filterableAttrs := []string{"department", "year", "category", "created_by"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index(eventsIndex).UpdateFilterableAttributes(&filterableInterface); err != nil {
		log.Printf("Failed to update events filterable attributes: %v", err)
	}

	sortableAttrs := []string{"date"}
	if _, err := s.client.Index(eventsIndex).UpdateSortableAttributes(&sortableAttrs); err != nil {
		log.Printf("Failed to update events sortable attributes: %v", err)
	}
}

type meiliEventDoc struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Venue       string `json:"venue"`
	Date        string `json:"date"`
	Department  string `json:"department"`
	Year        int    `json:"year"`
	Category    string `json:"category"`
	CreatedBy   string `json:"created_by"`
}

func (s *meiliEventIndex) cleanText(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	return sanitize.Compact(content)
}

func (s *meiliEventIndex) IndexEvent(_ context.Context, event *entity.Event) error {
	doc := meiliEventDoc{
		ID:          event.ID.String(),
		Title:       s.cleanText(event.Title),
		Description: s.cleanText(event.Description),
		Venue:       event.Venue,
		Date:        event.Date,
		Department:  event.Department,
		Year:        event.Year,
		Category:    string(event.Category),
		CreatedBy:   event.CreatedBy.String(),
	}

	primaryKey := "id"
	if _, err := s.client.Index(eventsIndex).AddDocuments([]meiliEventDoc{doc}, &primaryKey); err != nil {
		return fmt.Errorf("failed to index event %s: %w", event.ID, err)
	}
	return nil
}

func (s *meiliEventIndex) Search(_ context.Context, query string, limit int) ([]uuid.UUID, error) {
	raw, err := s.client.Index(eventsIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, fmt.Errorf("event search failed: %w", err)
	}

	var result struct {
		Hits []struct {
			ID string `json:"id"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode search hits: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if id, err := uuid.Parse(hit.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

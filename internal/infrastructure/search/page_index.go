package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-content-auth/internal/application"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// PageIndex mirrors published public pages into an Elasticsearch index.
type PageIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewPageIndex(es *elasticsearch.Client, index string) *PageIndex {
	return &PageIndex{es: es, index: index}
}

type pageDoc struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Body        string     `json:"body,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

func (ix *PageIndex) Index(ctx context.Context, p *entity.Page) error {
	b, err := json.Marshal(pageDoc{
		ID: p.ID, Slug: p.Slug, Title: p.Title, Description: p.Description, Body: p.Body, PublishedAt: p.PublishedAt,
	})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: ix.index, DocumentID: p.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, ix.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

// Remove is a no-op for documents that were never indexed.
func (ix *PageIndex) Remove(ctx context.Context, pageID string) error {
	req := esapi.DeleteRequest{Index: ix.index, DocumentID: pageID}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, ix.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es delete: %s", res.Status())
	}
	return nil
}

// Search runs a multi_match over title, description and body.
func (ix *PageIndex) Search(ctx context.Context, q string, size int) ([]application.SearchHit, error) {
	query := map[string]any{
		"size": size,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"title^3", "description^2", "body", "slug"},
			},
		},
	}
	if q == "" {
		query["query"] = map[string]any{"match_all": map[string]any{}}
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := ix.es.Search(
		ix.es.Search.WithContext(c),
		ix.es.Search.WithIndex(ix.index),
		ix.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode == http.StatusNotFound {
		return []application.SearchHit{}, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}
	return decodeHits(res.Body)
}

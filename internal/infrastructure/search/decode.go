package search

import (
	"encoding/json"
	"io"

	"github.com/oksasatya/go-content-auth/internal/application"
)

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Source pageDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func decodeHits(r io.Reader) ([]application.SearchHit, error) {
	var parsed searchResponse
	if err := json.NewDecoder(r).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]application.SearchHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id := h.Source.ID
		if id == "" {
			id = h.ID
		}
		out = append(out, application.SearchHit{
			ID:          id,
			Slug:        h.Source.Slug,
			Title:       h.Source.Title,
			Description: h.Source.Description,
			PublishedAt: h.Source.PublishedAt,
		})
	}
	return out, nil
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-resty/resty/v2"
)

type searchRequest struct {
	Query    string   `json:"query"`
	SpaceIDs []string `json:"spaceIds,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

type searchResult struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

type searchResponse struct {
	Data []searchResult `json:"data"`
}

func runSearch(c *resty.Client, query string, spaceIDs []string, limit int, out io.Writer) error {
	var body searchResponse
	resp, err := c.R().
		SetBody(searchRequest{Query: query, SpaceIDs: spaceIDs, Limit: limit}).
		SetResult(&body).
		Post("/v1/search")
	if err != nil {
		return fmt.Errorf("search request failed: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return err
	}

	if len(body.Data) == 0 {
		fmt.Fprintln(out, "no results")
		return nil
	}
	for _, r := range body.Data {
		content := r.Content
		if i := strings.IndexByte(content, '\n'); i >= 0 {
			content = content[:i]
		}
		fmt.Fprintf(out, "%.3f  %s  %s\n", r.Similarity, r.ID, content)
	}
	return nil
}

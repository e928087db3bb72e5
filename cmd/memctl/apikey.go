package main

import (
	"fmt"
	"io"

	"github.com/go-resty/resty/v2"
)

type createApiKeyRequest struct {
	Name     string   `json:"name"`
	SpaceIDs []string `json:"spaceIds"`
}

type createApiKeyResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

func runCreateApiKey(c *resty.Client, name string, spaceIDs []string, out io.Writer) error {
	var body createApiKeyResponse
	resp, err := c.R().
		SetBody(createApiKeyRequest{Name: name, SpaceIDs: spaceIDs}).
		SetResult(&body).
		Post("/v1/api-keys")
	if err != nil {
		return fmt.Errorf("create api key request failed: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return err
	}

	fmt.Fprintf(out, "id:    %s\n", body.ID)
	fmt.Fprintf(out, "name:  %s\n", body.Name)
	// Shown exactly once; the server only stores a hash.
	fmt.Fprintf(out, "token: %s\n", body.Key)
	return nil
}

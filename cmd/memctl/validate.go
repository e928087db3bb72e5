package main

import (
	"fmt"
	"io"

	"github.com/go-resty/resty/v2"
)

type validateTokenResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"userId,omitempty"`
}

func runValidateToken(c *resty.Client, token string, out io.Writer) error {
	var body validateTokenResponse
	resp, err := c.R().
		SetBody(map[string]string{"token": token}).
		SetResult(&body).
		Post("/v1/auth/validate-token")
	if err != nil {
		return fmt.Errorf("validate token request failed: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return err
	}

	if body.Valid {
		fmt.Fprintf(out, "valid (user %s)\n", body.UserID)
	} else {
		fmt.Fprintln(out, "invalid")
	}
	return nil
}

package main

import (
	"fmt"
	"io"

	"github.com/go-resty/resty/v2"
)

type createInviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type createInviteResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

func runCreateInvite(c *resty.Client, email, role string, out io.Writer) error {
	var body createInviteResponse
	resp, err := c.R().
		SetBody(createInviteRequest{Email: email, Role: role}).
		SetResult(&body).
		Post("/v1/invites")
	if err != nil {
		return fmt.Errorf("create invite request failed: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return err
	}

	fmt.Fprintf(out, "email:   %s\n", body.Email)
	fmt.Fprintf(out, "role:    %s\n", body.Role)
	fmt.Fprintf(out, "token:   %s\n", body.Token)
	fmt.Fprintf(out, "expires: %s\n", body.ExpiresAt)
	return nil
}

package main

import (
	"fmt"

	"github.com/go-resty/resty/v2"
)

// newClient builds a resty client from the persistent flags. Either a bearer
// token or the dev session header may authenticate; both unset is fine for
// the public auth endpoints.
func newClient() *resty.Client {
	c := resty.New().
		SetBaseURL(apiFlag).
		SetHeader("Content-Type", "application/json")
	if tokenFlag != "" {
		c.SetAuthToken(tokenFlag)
	}
	if devUser != "" {
		c.SetHeader("X-Dev-User", devUser)
	}
	return c
}

// checkStatus turns non-2xx responses into errors carrying the server body.
func checkStatus(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return fmt.Errorf("%s: %s", resp.Status(), resp.String())
}

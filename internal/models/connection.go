package models

import "strings"

// Credentials identify the controller and the account used to obtain a token.
type Credentials struct {
	Endpoint string
	Username string
	Password string
	Insecure bool // skip TLS verification
}

// BaseURL returns the controller endpoint without a trailing slash.
func (c Credentials) BaseURL() string {
	return strings.TrimRight(c.Endpoint, "/")
}

// MaskedPassword returns a placeholder for the password, suitable for logs.
func (c Credentials) MaskedPassword() string {
	if c.Password == "" {
		return ""
	}
	return "••••••••"
}

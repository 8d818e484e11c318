package anonauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCookieDomain(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		host       string
		expected   string
	}{
		{"unconfigured stays host only", "", "app.example.com", ""},
		{"subdomain gets scoped", "example.com", "app.example.com", "example.com"},
		{"apex gets scoped", "example.com", "example.com", "example.com"},
		{"bare hostname skipped", "example.com", "localhost", ""},
		{"ipv4 literal skipped", "example.com", "127.0.0.1", ""},
		{"ipv6 literal skipped", "example.com", "::1", ""},
		{"host with port", "example.com", "app.example.com:8080", "example.com"},
		{"unrelated host skipped", "example.com", "app.other.com", ""},
		{"suffix lookalike skipped", "example.com", "notexample.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cookieDomain(tt.configured, tt.host))
		})
	}
}

func TestRegistrableDomain(t *testing.T) {
	assert.Equal(t, "example.com", RegistrableDomain("app.example.com"))
	assert.Equal(t, "example.com", RegistrableDomain("deep.sub.example.com"))
	assert.Equal(t, "example.com", RegistrableDomain("example.com"))
	assert.Equal(t, "example.com", RegistrableDomain("app.example.com:443"))
	assert.Equal(t, "", RegistrableDomain("localhost"))
	assert.Equal(t, "", RegistrableDomain("192.168.1.1"))
}

package dns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootDomain(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"a.b.example.com", "example.com"},
		{"sub.example.com", "example.com"},
		{"example.com", "example.com"},
		{"localhost", "localhost"},
		// Known limitation: multi-level public suffixes are not special-cased.
		{"example.co.uk", "co.uk"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RootDomain(tt.domain), "RootDomain(%q)", tt.domain)
	}
}

func TestRelativeRecordName(t *testing.T) {
	assert.Equal(t, "_acme-challenge", relativeRecordName("_acme-challenge.example.com", "example.com"))
	assert.Equal(t, "_acme-challenge.sub", relativeRecordName("_acme-challenge.sub.example.com", "sub.example.com"))
}

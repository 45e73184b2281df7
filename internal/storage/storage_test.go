package storage

import (
	"context"
	"strings"
	"testing"
)

func TestSanitizeVersion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "unversioned",
		},
		{
			name:     "simple version",
			input:    "2.1",
			expected: "2.1",
		},
		{
			name:     "attack release version",
			input:    "15.1",
			expected: "15.1",
		},
		{
			name:     "spaces replaced with underscore",
			input:    "2.1 draft",
			expected: "2.1_draft",
		},
		{
			name:     "special characters replaced",
			input:    "2.1/beta",
			expected: "2.1_beta",
		},
		{
			name:     "multiple underscores collapsed",
			input:    "2.1  beta",
			expected: "2.1_beta",
		},
		{
			name:     "leading and trailing underscores trimmed",
			input:    "_2.1_",
			expected: "2.1",
		},
		{
			name:     "dashes preserved",
			input:    "2024-04-23",
			expected: "2024-04-23",
		},
		{
			name:     "all special chars becomes unversioned",
			input:    "@#$%",
			expected: "unversioned",
		},
		{
			name:     "very long version truncated",
			input:    strings.Repeat("9", 300),
			expected: strings.Repeat("9", 200),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeVersion(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeVersion(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestArchiveKey(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		expected string
	}{
		{
			name:     "plain version",
			version:  "15.1",
			expected: "bundles/15.1.json",
		},
		{
			name:     "version with slash",
			version:  "15.1/rc1",
			expected: "bundles/15.1_rc1.json",
		},
		{
			name:     "empty version",
			version:  "",
			expected: "bundles/unversioned.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ArchiveKey(tt.version)
			if result != tt.expected {
				t.Errorf("ArchiveKey(%q) = %q, want %q", tt.version, result, tt.expected)
			}
		})
	}
}

func TestService_DisabledUpload(t *testing.T) {
	svc := &Service{}

	if svc.Enabled() {
		t.Error("Enabled() = true for unconfigured service, want false")
	}

	if _, err := svc.Upload(context.Background(), "key", nil, 0, UploadOptions{}); err == nil {
		t.Error("Upload() on disabled service returned nil error")
	}
}

package sanitize

import (
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Plain name",
			input:    "protein.pdb",
			expected: "protein.pdb",
		},
		{
			name:     "Unix path stripped",
			input:    "/tmp/uploads/my protein.pdb",
			expected: "my_protein.pdb",
		},
		{
			name:     "Windows path stripped",
			input:    `C:\Users\me\my protein.pdb`,
			expected: "my_protein.pdb",
		},
		{
			name:     "Multiple spaces",
			input:    "my  protein  file.pdb",
			expected: "my__protein__file.pdb",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeFileName(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeFileName() = %q, want %q", result, tt.expected)
			}
		})
	}
}

package cmd

import "testing"

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "csv file",
			input:    "reviews.csv",
			expected: "reviews_processed.csv",
		},
		{
			name:     "xlsx file",
			input:    "data/reviews.xlsx",
			expected: "data/reviews_processed.xlsx",
		},
		{
			name:     "no extension",
			input:    "reviews",
			expected: "reviews_processed",
		},
		{
			name:     "dotted directory",
			input:    "v1.2/table.csv",
			expected: "v1.2/table_processed.csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := defaultOutputPath(tt.input); got != tt.expected {
				t.Errorf("defaultOutputPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLooksLikeTableFile(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"reviews.csv", true},
		{"Reviews.XLSX", true},
		{"steps.yaml", false},
		{"notatable", false},
	}

	for _, tt := range tests {
		if got := looksLikeTableFile(tt.path); got != tt.expected {
			t.Errorf("looksLikeTableFile(%q) = %v, want %v", tt.path, got, tt.expected)
		}
	}
}

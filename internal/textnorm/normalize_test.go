package textnorm_test

import (
	"testing"

	"github.com/forkadarshp/metrix/internal/textnorm"
)

type cleanerTestCase struct {
	name     string
	input    string
	expected string
}

func runCleanerTests(t *testing.T, tests []cleanerTestCase) {
	t.Helper()

	cleaner := textnorm.NewCleaner()

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			result := cleaner.Clean(testCase.input)
			if result != testCase.expected {
				t.Errorf("Expected %q, got %q", testCase.expected, result)
			}
		})
	}
}

func TestNewCleaner(t *testing.T) {
	t.Parallel()

	if textnorm.NewCleaner() == nil {
		t.Fatal("NewCleaner returned nil")
	}
}

func TestCleaner_Clean_EmptyInput(t *testing.T) {
	t.Parallel()

	cleaner := textnorm.NewCleaner()

	if result := cleaner.Clean(""); result != "" {
		t.Errorf("Expected empty string for empty input, got %q", result)
	}
}

func TestCleaner_Clean_PreservesWording(t *testing.T) {
	t.Parallel()

	runCleanerTests(t, []cleanerTestCase{
		{
			name:     "abbreviations are left alone",
			input:    "Dr. Smith arrived",
			expected: "Dr. Smith arrived",
		},
		{
			name:     "bracket references are left alone",
			input:    "the result was confirmed [3]",
			expected: "the result was confirmed [3]",
		},
		{
			name:     "et al citations are left alone",
			input:    "as shown by Smith et al. the theory holds",
			expected: "as shown by Smith et al. the theory holds",
		},
		{
			name:     "missing terminal punctuation is left alone",
			input:    "no terminal punctuation",
			expected: "no terminal punctuation",
		},
	})
}

func TestCleaner_Clean_CollapsesWhitespaceArtifacts(t *testing.T) {
	t.Parallel()

	runCleanerTests(t, []cleanerTestCase{
		{
			name:     "collapses newlines and tabs",
			input:    "line one\n\tline two",
			expected: "line one line two",
		},
		{
			name:     "trims leading and trailing whitespace",
			input:    "  padded text  ",
			expected: "padded text",
		},
		{
			name:     "collapses repeated interior spaces",
			input:    "too    many     spaces",
			expected: "too many spaces",
		},
	})
}

func TestCleaner_Clean_NormalizesTypography(t *testing.T) {
	t.Parallel()

	runCleanerTests(t, []cleanerTestCase{
		{
			name:     "smart quotes normalized",
			input:    "she said “hello”",
			expected: `she said "hello"`,
		},
		{
			name:     "em dash normalized",
			input:    "wait—really",
			expected: "wait-really",
		},
		{
			name:     "en dash normalized",
			input:    "pages 10–20",
			expected: "pages 10-20",
		},
		{
			name:     "ellipsis character expanded",
			input:    "and then…",
			expected: "and then...",
		},
	})
}

func TestCleaner_Clean_Idempotent(t *testing.T) {
	t.Parallel()

	cleaner := textnorm.NewCleaner()

	once := cleaner.Clean("Dr. Smith said hello — it works!")
	twice := cleaner.Clean(once)

	if once != twice {
		t.Errorf("expected idempotent cleaning, got %q then %q", once, twice)
	}
}

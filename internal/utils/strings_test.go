package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: nil},
		{name: "only spaces", input: "   ", expected: nil},
		{name: "comma only", input: ",", expected: nil},
		{name: "single stock code", input: "85123A", expected: []string{"85123A"}},
		{name: "two codes", input: "85123A, 22423", expected: []string{"85123A", "22423"}},
		{name: "trailing comma", input: "71053,", expected: []string{"71053"}},
		{name: "multiple commas", input: ",,85123A,,22423,,", expected: []string{"85123A", "22423"}},
		{name: "internal spaces preserved", input: "United Kingdom, EIRE", expected: []string{"United Kingdom", "EIRE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCSV(tt.input))
		})
	}
}

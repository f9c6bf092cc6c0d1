package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "trims whitespace", input: []string{"  signer ", "ops"}, expected: []string{"signer", "ops"}},
		{name: "first occurrence wins", input: []string{"b", "a", "b", " a"}, expected: []string{"b", "a"}},
		{name: "blank only", input: []string{"", "  "}, expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, SplitList(" kafka-1:9092, kafka-2:9092 ,kafka-1:9092"))
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList(" , ,"))
}

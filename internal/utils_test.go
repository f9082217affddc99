package internal

import (
	"errors"
	"reflect"
	"testing"
)

type testData struct {
	Summary string
}

func TestMergeMaps(t *testing.T) {
	map1 := map[string]int{"one": 1, "two": 2}
	map2 := map[string]int{"three": 3, "four": 4}
	map3 := map[string]int{"five": 5, "six": 6}

	expected := map[string]int{
		"one":   1,
		"two":   2,
		"three": 3,
		"four":  4,
		"five":  5,
		"six":   6,
	}

	result := MergeMaps(map1, map2, map3)

	if !reflect.DeepEqual(result, expected) {
		t.Errorf("Expected %v, but got %v", expected, result)
	}
}

func TestParsePrompt(t *testing.T) {
	testCases := []struct {
		name           string
		promptTemplate string
		data           interface{}
		expected       string
		expectedErr    error
	}{
		{
			name:           "Valid template and data",
			promptTemplate: "Ask a question about {{.Summary}}.",
			data:           testData{Summary: "renewable energy"},
			expected:       "Ask a question about renewable energy.",
			expectedErr:    nil,
		},
		{
			name:           "Invalid template",
			promptTemplate: "Ask a question about {{.Summary.",
			data:           testData{Summary: "renewable energy"},
			expected:       "",
			expectedErr:    errors.New("template: prompt:1: unexpected \".\" in operand"),
		},
		{
			name:           "Invalid data property",
			promptTemplate: "Ask a question about {{.InvalidProperty}}.",
			data:           testData{Summary: "renewable energy"},
			expected:       "",
			expectedErr: errors.New(
				"template: prompt:1:23: executing \"prompt\" at <.InvalidProperty>: can't evaluate field InvalidProperty in type internal.testData",
			),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParsePrompt(tc.promptTemplate, tc.data)
			if result != tc.expected {
				t.Errorf("Expected: %s, Got: %s", tc.expected, result)
			}
			if (err == nil) != (tc.expectedErr == nil) ||
				(err != nil && err.Error() != tc.expectedErr.Error()) {
				t.Errorf("Expected error: %v, Got error: %v", tc.expectedErr, err)
			}
		})
	}
}

package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestFormatChoiceUsage(t *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "DefaultFirstChoice",
			defaultChoice:  "basic",
			choices:        []string{"basic", "digest"},
			description:    "HTTP authentication scheme.",
			expectedOutput: "`<BASIC|digest>` HTTP authentication scheme.",
		},
		{
			name:           "DefaultLastChoice",
			defaultChoice:  "ssh",
			choices:        []string{"http", "https", "ssh"},
			description:    "Transport scheme.",
			expectedOutput: "`<http|https|SSH>` Transport scheme.",
		},
		{
			name:           "EmptyDescription",
			defaultChoice:  "alpha",
			choices:        []string{"alpha", "beta"},
			expectedOutput: "`<ALPHA|beta>`",
		},
		{
			name:           "DuplicateChoicesIgnored",
			defaultChoice:  "beta",
			choices:        []string{"beta", "BETA", "alpha", " alpha "},
			description:    "Select between options.",
			expectedOutput: "`<BETA|alpha>` Select between options.",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expectedOutput, FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description))
		})
	}
}

func TestAddChoiceFlagValidatesValues(t *testing.T) {
	testCases := []struct {
		name          string
		arguments     []string
		expectError   bool
		expectedValue string
	}{
		{name: "DefaultRetained", arguments: []string{}, expectedValue: "https"},
		{name: "CaseInsensitive", arguments: []string{"--scheme", "SSH"}, expectedValue: "ssh"},
		{name: "UnknownRejected", arguments: []string{"--scheme", "ftp"}, expectError: true, expectedValue: "https"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			command := &cobra.Command{}

			var schemeValue string
			AddChoiceFlag(command.Flags(), &schemeValue, "scheme", "https", []string{"http", "https", "ssh"}, "Transport scheme.")

			parseError := command.ParseFlags(testCase.arguments)
			if testCase.expectError {
				require.Error(t, parseError)
			} else {
				require.NoError(t, parseError)
			}
			require.Equal(t, testCase.expectedValue, schemeValue)
		})
	}
}

package sortname

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"The Witcher", "Witcher, The"},
		{"A Hat in Time", "Hat in Time, A"},
		{"An Airport for Aliens", "Airport for Aliens, An"},
		{"the witcher", "witcher, the"},
		{"THE WITCHER", "WITCHER, THE"},
		{"The Legend of Zelda: Breath of the Wild", "Legend of Zelda: Breath of the Wild, The"},
		{"The  Messenger", "Messenger, The"},
		{"Shadow of the Colossus", "Shadow of the Colossus"},
		{"Rise of the Tomb Raider", "Rise of the Tomb Raider"},
		{"Another World", "Another World"},
		{"Theme Hospital", "Theme Hospital"},
		{"Celeste", "Celeste"},
		{"The", "The"},
		{"The ", "The"},
		{"   ", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ForTitle(tt.input))
		})
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "folds case and accents",
			input:    "Pokémon Red",
			expected: "pokemon red",
		},
		{
			name:     "pads numbers",
			input:    "Final Fantasy 10",
			expected: "final fantasy 000010",
		},
		{
			name:     "moves the article",
			input:    "The Witcher 3",
			expected: "witcher 000003, the",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Key(tt.input))
		})
	}

	assert.Less(t, Key("Final Fantasy 9"), Key("Final Fantasy 10"))
	assert.Less(t, Key("The Witcher"), Key("Zelda"))
}

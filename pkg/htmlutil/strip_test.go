package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "plain summary passes through",
			input:    "A physics puzzle game set in Aperture Science.",
			expected: "A physics puzzle game set in Aperture Science.",
		},
		{
			name:     "paragraphs become lines",
			input:    "<p>Explore Hyrule.</p><p>Rescue Princess Zelda.</p>",
			expected: "Explore Hyrule.\nRescue Princess Zelda.",
		},
		{
			name:     "inline formatting is dropped",
			input:    "<p>The <strong>cake</strong> is a <em>lie</em></p>",
			expected: "The cake is a lie",
		},
		{
			name:     "br variants",
			input:    "Single player<br>Co-op<br/>Online<br />Split screen",
			expected: "Single player\nCo-op\nOnline\nSplit screen",
		},
		{
			name:     "store page markup with attributes",
			input:    `<div class="bb_tag"><h2 class="bb_tag">About</h2><p style="font-weight: 600">Build a <a href="https://example.com">factory</a>.</p></div>`,
			expected: "About\nBuild a factory.",
		},
		{
			name:     "feature lists",
			input:    "<ul><li>120 levels</li><li>Level editor</li></ul>",
			expected: "120 levels\nLevel editor",
		},
		{
			name:     "raw newlines and runs of spaces collapse",
			input:    "Chapter 1\n\n\n   Chapter  2",
			expected: "Chapter 1\nChapter 2",
		},
		{
			name:     "images and embeds leave nothing behind",
			input:    `Trailer: <img src="header.jpg"/> <iframe src="x"></iframe>watch now`,
			expected: "Trailer: watch now",
		},
		{
			name:     "script and style content dropped",
			input:    "<style>.x{color:red}</style><p>Visible</p><script>track()</script>",
			expected: "Visible",
		},
		{
			name:     "uppercase tags",
			input:    "<P>Act I</P><DIV>Act II</DIV>",
			expected: "Act I\nAct II",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, StripTags(tt.input))
		})
	}
}

func TestStripTags_Entities(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "ampersand in a studio name",
			input:    "Ratchet &amp; Clank",
			expected: "Ratchet & Clank",
		},
		{
			name:     "nbsp",
			input:    "Final&nbsp;Fantasy&nbsp;VII",
			expected: "Final Fantasy VII",
		},
		{
			name:     "typographic quotes and dashes",
			input:    "&ldquo;Would you kindly&rdquo; &mdash; BioShock&#8217;s hook",
			expected: "“Would you kindly” — BioShock’s hook",
		},
		{
			name:     "trademarks",
			input:    "Pok&eacute;mon&trade; &copy; 1996 Nintendo&reg;",
			expected: "Pokémon™ © 1996 Nintendo®",
		},
		{
			name:     "escaped markup stays literal text",
			input:    "Press &lt;Enter&gt; to start",
			expected: "Press <Enter> to start",
		},
		{
			name:     "unknown entities are left alone",
			input:    "Rock &qqq; Roll",
			expected: "Rock &qqq; Roll",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, StripTags(tt.input))
		})
	}
}

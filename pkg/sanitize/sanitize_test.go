package sanitize

import "testing"

func TestString_StripsDisallowedTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "script removed",
			input: `hello <script>alert("x")</script>world`,
			want:  "hello world",
		},
		{
			name:  "formatting safelist preserved",
			input: "<p>A <b>bold</b> and <em>emphatic</em> note</p>",
			want:  "<p>A <b>bold</b> and <em>emphatic</em> note</p>",
		},
		{
			name:  "attributes dropped",
			input: `<p style="color:red" onclick="boom()">text</p>`,
			want:  "<p>text</p>",
		},
		{
			name:  "anchor discarded",
			input: `see <a href="http://evil.example">this</a>`,
			want:  "see this",
		},
		{
			name:  "lists kept",
			input: "<ul><li>one</li><li>two</li></ul>",
			want:  "<ul><li>one</li><li>two</li></ul>",
		},
		{
			name:  "whitespace trimmed",
			input: "  plain text  ",
			want:  "plain text",
		},
		{
			name:  "img stripped",
			input: `before <img src="x" onerror="alert(1)"> after`,
			want:  "before  after",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := String(tt.input)
			if got != tt.want {
				t.Errorf("String(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestString_Idempotent(t *testing.T) {
	inputs := []string{
		`<div><script>x</script><b>keep</b></div>`,
		"plain",
		`<p onclick="a">para</p><iframe src="x"></iframe>`,
		"",
	}
	for _, in := range inputs {
		once := String(in)
		twice := String(once)
		if once != twice {
			t.Errorf("sanitize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

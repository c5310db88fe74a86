package tokenize

import (
	"strings"
	"testing"
)

func TestWords(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple", "go now", []string{"go", "now"}},
		{"leading and trailing space", "  hello world  ", []string{"hello", "world"}},
		{"collapsed whitespace", "a\t b\n\nc", []string{"a", "b", "c"}},
		{"single word", "caption", []string{"caption"}},
		{"empty", "", nil},
		{"whitespace only", " \t\n ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Words(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Words(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Words(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWords_NoEmptyOrWhitespaceTokens(t *testing.T) {
	inputs := []string{"one  two", " a ", "x\ty z", "   "}
	for _, in := range inputs {
		for i, w := range Words(in) {
			if w == "" {
				t.Errorf("Words(%q)[%d] is empty", in, i)
			}
			if strings.ContainsAny(w, " \t\n\r") {
				t.Errorf("Words(%q)[%d] = %q contains whitespace", in, i, w)
			}
		}
	}
}

func TestWords_Reconstruction(t *testing.T) {
	input := "  the   quick\tbrown fox "
	got := strings.Join(Words(input), " ")
	want := "the quick brown fox"
	if got != want {
		t.Errorf("joined tokens = %q, want %q", got, want)
	}
}

package ingest

import (
	"reflect"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "ascii sentences",
			in:   "First sentence. Second sentence. Third sentence.",
			want: []string{"First sentence.", "Second sentence.", "Third sentence."},
		},
		{
			name: "abbreviation is not a boundary",
			in:   "Dr. Smith measured the sample. It passed.",
			want: []string{"Dr. Smith measured the sample.", "It passed."},
		},
		{
			name: "decimal number is not a boundary",
			in:   "The limit is 3.5 percent. Measured value was lower.",
			want: []string{"The limit is 3.5 percent.", "Measured value was lower."},
		},
		{
			name: "cjk sentences",
			in:   "本品为白色粉末。易溶于水。不溶于乙醚。",
			want: []string{"本品为白色粉末。", "易溶于水。", "不溶于乙醚。"},
		},
		{
			name: "no boundary returns whole text",
			in:   "a single fragment without terminal punctuation",
			want: []string{"a single fragment without terminal punctuation"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitSentences(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

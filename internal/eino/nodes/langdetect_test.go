package nodes

import (
	"testing"

	"inquiry-classifier/internal/domain/models"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.Language
	}{
		{
			name: "english inquiry",
			text: "We need a quote for 1000 aluminum brackets",
			want: models.LanguageEN,
		},
		{
			name: "japanese inquiry",
			text: "アルミニウム部品500個の見積もりをお願いします",
			want: models.LanguageJA,
		},
		{
			name: "mostly english with few japanese chars",
			text: "Please quote these brackets, reference 見積 attached below for details",
			want: models.LanguageOther,
		},
		{
			name: "empty text",
			text: "",
			want: models.LanguageOther,
		},
		{
			name: "digits and punctuation only",
			text: "12345 --- 67890!!!",
			want: models.LanguageOther,
		},
		{
			name: "mixed japanese dominant",
			text: "CNC加工の公差について質問があります",
			want: models.LanguageJA,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

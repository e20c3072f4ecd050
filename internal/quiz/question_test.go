package quiz

import "testing"

func TestMatchTyped(t *testing.T) {
	tests := []struct {
		given, expected string
		want            bool
	}{
		{"el perro", "perro", true},
		{"Perro", "perro", true},
		{"perro", "el perro", true},
		{"la casa", "las casas", false},
		{"unos libros", "libros", true},
		{"elefante", "elefante", true},
		{"elefante", "fante", false},
		{"", "perro", false},
	}

	for _, tt := range tests {
		if got := MatchTyped(tt.given, tt.expected); got != tt.want {
			t.Errorf("MatchTyped(%q, %q) = %v, want %v", tt.given, tt.expected, got, tt.want)
		}
	}
}

func TestMatchExact(t *testing.T) {
	if !MatchExact(" Soy ", "soy") {
		t.Error("MatchExact should ignore case and surrounding space")
	}
	if MatchExact("el soy", "soy") {
		t.Error("MatchExact must not strip articles")
	}
}

func TestCloze(t *testing.T) {
	tests := []struct {
		sentence, word string
		want           string
		ok             bool
	}{
		{"Mi perro es grande.", "el perro", "Mi ___ es grande.", true},
		{"Casa blanca.", "la casa", "___ blanca.", true},
		{"No aparece.", "gato", "No aparece.", false},
		{"Algo.", "", "Algo.", false},
		{"Los gatos duermen. El gato come.", "el gato", "Los gatos duermen. El ___ come.", true},
		{"Los gatos duermen.", "gato", "Los gatos duermen.", false},
		{"El AÑO pasado.", "el año", "El ___ pasado.", true},
		{"Ya está, está bien.", "está", "Ya ___, está bien.", true},
		{"Una mesa-silla.", "mesa", "Una ___-silla.", true},
	}

	for _, tt := range tests {
		got, ok := Cloze(tt.sentence, tt.word)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Cloze(%q, %q) = %q, %v; want %q, %v", tt.sentence, tt.word, got, ok, tt.want, tt.ok)
		}
	}
}

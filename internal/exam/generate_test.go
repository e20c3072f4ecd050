package exam

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/felixgeelhaar/palabras/internal/content"
)

func exampleWords(prefix string, n int, withExamples bool) []content.WordEntry {
	out := make([]content.WordEntry, n)
	for i := range out {
		es := fmt.Sprintf("%s%d", prefix, i)
		out[i] = content.WordEntry{Spanish: "el " + es, Russian: "ru-" + es}
		if withExamples {
			out[i].Examples = []string{fmt.Sprintf("Veo %s hoy.", es)}
		}
	}
	return out
}

func grammarExercise(id string, n int) content.Exercise {
	ex := content.Exercise{ID: id, Hint: "conjuga"}
	for i := 0; i < n; i++ {
		ex.Questions = append(ex.Questions, content.Question{
			Sentence: fmt.Sprintf("Frase %d ___.", i),
			Answer:   fmt.Sprintf("r%d", i),
		})
	}
	return ex
}

func TestSampleSize(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 0},
		{1, 1},
		{3, 1},
		{4, 2},
		{7, 3},
		{10, 3},
		{11, 4},
		{20, 6},
	}
	for _, tt := range tests {
		if got := SampleSize(tt.n); got != tt.want {
			t.Errorf("SampleSize(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestGenerate_SamplesPerGroup(t *testing.T) {
	unit := &content.Unit{
		ID: "unidad_1",
		Groups: []content.Group{
			{Name: "siete", Words: exampleWords("s", 7, true)},
			{Name: "diez", Words: exampleWords("d", 10, true)},
			{Name: "once", Words: exampleWords("o", 11, true)},
		},
	}

	questions, err := Generate(unit, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	counts := make(map[string]int)
	seen := make(map[string]bool)
	for _, q := range questions {
		counts[q.Source]++
		if seen[q.Answer] {
			t.Errorf("word %q sampled twice", q.Answer)
		}
		seen[q.Answer] = true
	}
	want := map[string]int{"siete": 3, "diez": 3, "once": 4}
	for group, n := range want {
		if counts[group] != n {
			t.Errorf("questions from %s = %d, want %d", group, counts[group], n)
		}
	}
}

func TestGenerate_Cloze(t *testing.T) {
	unit := &content.Unit{
		ID:     "unidad_1",
		Groups: []content.Group{{Name: "animales", Words: []content.WordEntry{{Spanish: "el perro", Russian: "собака", Examples: []string{"Mi perro come."}}}}},
	}

	questions, err := Generate(unit, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	q := questions[0]
	if q.Prompt != "Mi ___ come." {
		t.Errorf("Prompt = %q, want cloze", q.Prompt)
	}
	if q.Answer != "perro" {
		t.Errorf("Answer = %q, want perro", q.Answer)
	}
	if q.Hint != "собака" || q.Kind != KindVocabulary {
		t.Errorf("question = %+v", q)
	}
}

func TestGenerate_ClozeNeedsWholeWord(t *testing.T) {
	unit := &content.Unit{
		ID:     "unidad_1",
		Groups: []content.Group{{Name: "animales", Words: []content.WordEntry{{Spanish: "el gato", Russian: "кошка", Examples: []string{"Los gatos duermen."}}}}},
	}

	questions, err := Generate(unit, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	q := questions[0]
	if q.Prompt != "Los gatos duermen." {
		t.Errorf("Prompt = %q, want the sentence unchanged", q.Prompt)
	}
	if q.Answer != "el gato" {
		t.Errorf("Answer = %q, want the full word", q.Answer)
	}
}

func TestGenerate_SkipsWordsWithoutExamples(t *testing.T) {
	unit := &content.Unit{
		ID: "unidad_1",
		Groups: []content.Group{
			{Name: "sin", Words: exampleWords("x", 10, false)},
		},
		Exercises: []content.Exercise{grammarExercise("ser", 4)},
	}

	questions, err := Generate(unit, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("len(questions) = %d, want 2 grammar questions", len(questions))
	}
	for _, q := range questions {
		if q.Kind != KindGrammar || q.Source != "ser" || q.Hint != "conjuga" {
			t.Errorf("question = %+v, want grammar from ser", q)
		}
	}
}

func TestGenerate_VocabularyFirst(t *testing.T) {
	unit := &content.Unit{
		ID:        "unidad_1",
		Groups:    []content.Group{{Name: "g", Words: exampleWords("g", 10, true)}},
		Exercises: []content.Exercise{grammarExercise("a", 10), grammarExercise("b", 5)},
	}

	questions, err := Generate(unit, rand.New(rand.NewPCG(5, 6)))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(questions) != 3+3+2 {
		t.Fatalf("len(questions) = %d, want 8", len(questions))
	}

	grammar := false
	for i, q := range questions {
		if q.Kind == KindGrammar {
			grammar = true
		} else if grammar {
			t.Fatalf("vocabulary question at %d after grammar", i)
		}
	}
}

func TestGenerate_NoQuestions(t *testing.T) {
	unit := &content.Unit{
		ID:     "unidad_9",
		Groups: []content.Group{{Name: "vacio", Words: exampleWords("v", 5, false)}},
	}

	if _, err := Generate(unit, rand.New(rand.NewPCG(1, 2))); !errors.Is(err, ErrNoQuestions) {
		t.Errorf("Generate() error = %v, want ErrNoQuestions", err)
	}
	if _, err := New(unit, rand.New(rand.NewPCG(1, 2)), Config{}); !errors.Is(err, ErrNoQuestions) {
		t.Errorf("New() error = %v, want ErrNoQuestions", err)
	}
}

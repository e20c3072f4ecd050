package exam

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/felixgeelhaar/palabras/internal/content"
	"github.com/felixgeelhaar/palabras/internal/quiz"
)

var ErrNoQuestions = errors.New("unit has no sampleable exam content")

// Kind separates vocabulary questions from grammar questions
type Kind string

const (
	KindVocabulary Kind = "vocabulary"
	KindGrammar    Kind = "grammar"
)

// Question is one exam item. Source is the group name for vocabulary
// and the exercise id for grammar.
type Question struct {
	Kind   Kind   `json:"kind"`
	Source string `json:"source"`
	Prompt string `json:"prompt"`
	Hint   string `json:"hint,omitempty"`
	Answer string `json:"-"`
}

// SampleSize returns ceil(30% of n)
func SampleSize(n int) int {
	if n <= 0 {
		return 0
	}
	return (3*n + 9) / 10
}

func sample[T any](rnd *rand.Rand, in []T, k int) []T {
	idx := rnd.Perm(len(in))
	if k > len(idx) {
		k = len(idx)
	}
	out := make([]T, k)
	for i := range out {
		out[i] = in[idx[i]]
	}
	return out
}

// Generate draws the exam for a unit: vocabulary questions for every
// group first, then grammar questions for every exercise.
func Generate(unit *content.Unit, rnd *rand.Rand) ([]Question, error) {
	var questions []Question

	for _, g := range unit.Groups {
		for _, w := range sample(rnd, g.Words, SampleSize(len(g.Words))) {
			if len(w.Examples) == 0 {
				continue
			}
			questions = append(questions, vocabularyQuestion(rnd, g.Name, w))
		}
	}

	for _, ex := range unit.Exercises {
		for _, q := range sample(rnd, ex.Questions, SampleSize(len(ex.Questions))) {
			questions = append(questions, Question{
				Kind:   KindGrammar,
				Source: ex.ID,
				Prompt: q.Sentence,
				Hint:   ex.Hint,
				Answer: q.Answer,
			})
		}
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("%s: %w", unit.ID, ErrNoQuestions)
	}
	return questions, nil
}

// vocabularyQuestion blanks the word out of one of its examples. The
// expected answer is the word as it fills the blank, without article.
func vocabularyQuestion(rnd *rand.Rand, group string, w content.WordEntry) Question {
	sentence := w.Examples[rnd.IntN(len(w.Examples))]
	prompt, ok := quiz.Cloze(sentence, w.Spanish)
	answer := quiz.NormalizeTyped(w.Spanish)
	if !ok {
		answer = w.Spanish
	}
	return Question{
		Kind:   KindVocabulary,
		Source: group,
		Prompt: prompt,
		Hint:   w.Russian,
		Answer: answer,
	}
}

package quiz

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/palabras/internal/content"
	"github.com/felixgeelhaar/palabras/internal/profile"
)

// OptionCount is the number of choices shown on multiple-choice levels
const OptionCount = 4

// Blank replaces the hidden word in cloze prompts
const Blank = "___"

var leadingArticle = regexp.MustCompile(`^(el|la|los|las|un|una|unos|unas)\s+`)

// NormalizeTyped lowercases, trims, and strips a leading article
func NormalizeTyped(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimSpace(leadingArticle.ReplaceAllString(s, ""))
}

// MatchTyped compares a typed vocabulary answer, ignoring case and
// leading articles on both sides.
func MatchTyped(given, expected string) bool {
	return NormalizeTyped(given) == NormalizeTyped(expected)
}

// MatchExact compares after lowercasing and trimming only
func MatchExact(given, expected string) bool {
	return strings.ToLower(strings.TrimSpace(given)) == strings.ToLower(strings.TrimSpace(expected))
}

// Question is what the learner sees for one quiz step
type Question struct {
	Index   int      `json:"index"`
	Total   int      `json:"total"`
	Prompt  string   `json:"prompt"`
	Hint    string   `json:"hint,omitempty"`
	Options []string `json:"options,omitempty"`
	Typed   bool     `json:"typed"`
}

type item struct {
	prompt   string
	hint     string
	options  []string
	expected string
	typed    bool
	match    func(given, expected string) bool
}

func shuffled[T any](rnd *rand.Rand, in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// vocabularyItems builds one item per word, in shuffled order
func vocabularyItems(rnd *rand.Rand, level profile.Level, words []content.WordEntry) []item {
	queue := shuffled(rnd, words)
	items := make([]item, len(queue))
	for i, w := range queue {
		switch level {
		case profile.LevelEasy:
			items[i] = choiceItem(rnd, w.Spanish, w.Russian, w, words, func(e content.WordEntry) string { return e.Russian })
		case profile.LevelMedium:
			items[i] = choiceItem(rnd, w.Russian, w.Spanish, w, words, func(e content.WordEntry) string { return e.Spanish })
		default:
			items[i] = typedItem(rnd, w)
		}
	}
	return items
}

// choiceItem draws up to three distractors from the same group. An
// option text never appears twice.
func choiceItem(rnd *rand.Rand, prompt, answer string, word content.WordEntry, group []content.WordEntry, text func(content.WordEntry) string) item {
	seen := map[string]bool{answer: true}
	var pool []string
	for _, other := range group {
		t := text(other)
		if other.Same(word) || seen[t] {
			continue
		}
		seen[t] = true
		pool = append(pool, t)
	}

	pool = shuffled(rnd, pool)
	if len(pool) > OptionCount-1 {
		pool = pool[:OptionCount-1]
	}
	options := shuffled(rnd, append(pool, answer))

	return item{
		prompt:   prompt,
		options:  options,
		expected: answer,
		match:    func(given, expected string) bool { return given == expected },
	}
}

func typedItem(rnd *rand.Rand, w content.WordEntry) item {
	it := item{
		prompt:   w.Russian,
		expected: w.Spanish,
		typed:    true,
		match:    MatchTyped,
	}
	if len(w.Examples) == 0 {
		return it
	}
	sentence := w.Examples[rnd.IntN(len(w.Examples))]
	if cloze, ok := Cloze(sentence, w.Spanish); ok {
		it.prompt = cloze
		it.hint = w.Russian
	}
	return it
}

// Cloze blanks the first case-insensitive whole-word occurrence of word
// in sentence. The article is stripped from word before searching.
func Cloze(sentence, word string) (string, bool) {
	needle := NormalizeTyped(word)
	if needle == "" {
		return sentence, false
	}
	re, err := regexp.Compile(`(?i)(?:^|[^\p{L}\p{N}])(` + regexp.QuoteMeta(needle) + `)(?:[^\p{L}\p{N}]|$)`)
	if err != nil {
		return sentence, false
	}
	loc := re.FindStringSubmatchIndex(sentence)
	if loc == nil {
		return sentence, false
	}
	return sentence[:loc[2]] + Blank + sentence[loc[3]:], true
}

// grammarItems builds one typed item per exercise question
func grammarItems(rnd *rand.Rand, ex *content.Exercise) []item {
	questions := shuffled(rnd, ex.Questions)
	items := make([]item, len(questions))
	for i, q := range questions {
		items[i] = item{
			prompt:   q.Sentence,
			hint:     ex.Hint,
			expected: q.Answer,
			typed:    true,
			match:    MatchExact,
		}
	}
	return items
}

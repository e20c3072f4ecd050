package progress

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/palabras/internal/content"
	"github.com/felixgeelhaar/palabras/internal/profile"
)

type groupSpec struct {
	name  string
	words int
}

func words(prefix string, n int) []content.WordEntry {
	out := make([]content.WordEntry, n)
	for i := range out {
		out[i] = content.WordEntry{
			Spanish: fmt.Sprintf("%s-es-%d", prefix, i),
			Russian: fmt.Sprintf("%s-ru-%d", prefix, i),
		}
	}
	return out
}

func makeUnit(id string, groups []groupSpec, exercises ...string) *content.Unit {
	u := &content.Unit{ID: id}
	for _, g := range groups {
		u.Groups = append(u.Groups, content.Group{Name: g.name, Words: words(g.name, g.words)})
	}
	for _, ex := range exercises {
		u.Exercises = append(u.Exercises, content.Exercise{
			ID:        ex,
			Questions: []content.Question{{Sentence: "___", Answer: "x"}},
		})
	}
	return u
}

func newProfile() *profile.Profile {
	return profile.New("Ana", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func courseUnits() []*content.Unit {
	return []*content.Unit{
		makeUnit("unidad_1", []groupSpec{{"saludos", 12}, {"familia", 5}}, "ser_estar"),
		makeUnit("unidad_2", []groupSpec{{"colores", 10}}),
		makeUnit("unidad_3", []groupSpec{{"numeros", 10}}, "articulos"),
	}
}

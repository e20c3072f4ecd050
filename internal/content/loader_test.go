package content

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const unitJSON = `{
  "id": "unidad_1",
  "title": "Primeros pasos",
  "groups": {
    "saludos": [
      {"spanish": "hola", "ru": "привет", "examples": ["Hola, ¿qué tal?"]},
      {"spanish": "adiós", "ru": "пока"}
    ],
    "familia": [
      {"spanish": "la madre", "ru": "мать"}
    ],
    "animales": []
  },
  "ejercicios": [
    {
      "id": "ser_estar",
      "title": "Ser o estar",
      "hint": "permanente vs temporal",
      "questions": [
        {"sentence": "Yo ___ estudiante.", "answer": "soy"}
      ]
    }
  ]
}`

const unitYAML = `id: unidad_2
groups:
  colores:
    - spanish: rojo
      ru: красный
  numeros:
    - spanish: uno
      ru: один
      examples:
        - Tengo uno.
ejercicios:
  - id: articulos
    title: Artículos
    questions:
      - sentence: ___ casa
        answer: la
`

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestLoader_BasePath(t *testing.T) {
	loader := NewLoader("/content")
	if got := loader.BasePath(); got != "/content" {
		t.Errorf("BasePath() = %q, want %q", got, "/content")
	}
}

func TestLoader_LoadUnit_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Unidad1.json", unitJSON)

	unit, err := NewLoader(dir).LoadUnit("Unidad1.json")
	if err != nil {
		t.Fatalf("LoadUnit() error = %v", err)
	}

	if unit.ID != "unidad_1" {
		t.Errorf("ID = %q, want unidad_1", unit.ID)
	}
	if unit.Title != "Primeros pasos" {
		t.Errorf("Title = %q", unit.Title)
	}

	names := unit.GroupNames()
	want := []string{"saludos", "familia", "animales"}
	if len(names) != len(want) {
		t.Fatalf("GroupNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("GroupNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	saludos, err := unit.Group("saludos")
	if err != nil {
		t.Fatalf("Group(saludos) error = %v", err)
	}
	if len(saludos.Words) != 2 {
		t.Fatalf("len(saludos) = %d, want 2", len(saludos.Words))
	}
	if saludos.Words[0].Russian != "привет" || len(saludos.Words[0].Examples) != 1 {
		t.Errorf("first word = %+v", saludos.Words[0])
	}

	if len(unit.Exercises) != 1 || unit.Exercises[0].Questions[0].Answer != "soy" {
		t.Errorf("Exercises = %+v", unit.Exercises)
	}
}

func TestLoader_LoadUnit_YAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "unidad2.yaml", unitYAML)

	unit, err := NewLoader(dir).LoadUnit("unidad2.yaml")
	if err != nil {
		t.Fatalf("LoadUnit() error = %v", err)
	}

	want := &Unit{
		ID: "unidad_2",
		Groups: []Group{
			{Name: "colores", Words: []WordEntry{{Spanish: "rojo", Russian: "красный"}}},
			{Name: "numeros", Words: []WordEntry{{Spanish: "uno", Russian: "один", Examples: []string{"Tengo uno."}}}},
		},
		Exercises: []Exercise{{
			ID:        "articulos",
			Title:     "Artículos",
			Questions: []Question{{Sentence: "___ casa", Answer: "la"}},
		}},
	}
	if diff := cmp.Diff(want, unit); diff != "" {
		t.Errorf("LoadUnit() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_LoadUnit_MissingID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", `{"groups": {}}`)

	_, err := NewLoader(dir).LoadUnit("bad.json")
	if !errors.Is(err, ErrInvalidUnit) {
		t.Errorf("LoadUnit() error = %v, want ErrInvalidUnit", err)
	}
}

func TestLoader_LoadUnit_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", `{"id": "x", "groups": [1, 2]}`)

	if _, err := NewLoader(dir).LoadUnit("bad.json"); err == nil {
		t.Error("expected error for groups array")
	}
}

func TestLoader_LoadUnit_NotFound(t *testing.T) {
	if _, err := NewLoader(t.TempDir()).LoadUnit("missing.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoader_LoadAll_Ordering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"id": "unidad_10", "groups": {}}`)
	writeFile(t, dir, "b.json", `{"id": "unidad_2", "groups": {}}`)
	writeFile(t, dir, "c.yaml", "id: unidad_1\ngroups: {}\n")
	writeFile(t, dir, "notes.txt", "ignored")

	units, err := NewLoader(dir).LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	want := []string{"unidad_1", "unidad_2", "unidad_10"}
	if len(units) != len(want) {
		t.Fatalf("len(units) = %d, want %d", len(units), len(want))
	}
	for i, id := range want {
		if units[i].ID != id {
			t.Errorf("units[%d] = %s, want %s", i, units[i].ID, id)
		}
	}
}

func TestLoader_LoadAll_Duplicate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"id": "unidad_1", "groups": {}}`)
	writeFile(t, dir, "b.json", `{"id": "unidad_1", "groups": {}}`)

	_, err := NewLoader(dir).LoadAll()
	if !errors.Is(err, ErrInvalidUnit) {
		t.Errorf("LoadAll() error = %v, want ErrInvalidUnit", err)
	}
}

func TestLoader_LoadAll_NonExistentDir(t *testing.T) {
	if _, err := NewLoader("/nonexistent/palabras").LoadAll(); err == nil {
		t.Error("expected error for missing directory")
	}
}

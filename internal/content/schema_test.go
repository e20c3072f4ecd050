package content

import (
	"errors"
	"testing"
)

func TestValidateUnit(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		yaml    bool
		invalid bool // schema violation rather than syntax error
		wantErr bool
	}{
		{"json unit", unitJSON, false, false, false},
		{"yaml unit", unitYAML, true, false, false},
		{"yaml numeric answer", "id: unidad_1\nejercicios:\n  - id: n\n    questions:\n      - sentence: dos más dos\n        answer: 4\n", true, false, false},
		{"missing id", `{"groups": {}}`, false, true, true},
		{"empty id", `{"id": ""}`, false, true, true},
		{"groups as array", `{"id": "x", "groups": [1, 2]}`, false, true, true},
		{"word without translation", `{"id": "x", "groups": {"g": [{"spanish": "hola"}]}}`, false, true, true},
		{"exercise without questions", "id: x\nejercicios:\n  - id: ser\n", true, true, true},
		{"empty yaml", "", true, true, true},
		{"broken json", `{"id": `, false, false, true},
		{"broken yaml", "id: [x\n", true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUnit([]byte(tt.data), tt.yaml)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateUnit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, ErrInvalidUnit); got != tt.invalid {
				t.Errorf("errors.Is(ErrInvalidUnit) = %v, want %v (%v)", got, tt.invalid, err)
			}
		})
	}
}

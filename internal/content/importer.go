package content

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// ImportConfig describes where words live in a workbook. Every sheet is
// one group, named after the sheet.
type ImportConfig struct {
	UnitID         string
	Title          string
	SpanishColumn  string
	RussianColumn  string
	ExamplesColumn string // optional; examples are separated by ";"
	SkipHeader     bool
}

// DefaultImportConfig reads spanish, russian and examples from columns
// A, B and C below a header row
func DefaultImportConfig(unitID string) ImportConfig {
	return ImportConfig{
		UnitID:         unitID,
		SpanishColumn:  "A",
		RussianColumn:  "B",
		ExamplesColumn: "C",
		SkipHeader:     true,
	}
}

// ImportResult is the unit built from a workbook
type ImportResult struct {
	Unit     *UnitFile
	Imported int
	Skipped  []string // "sheet:row" of rows missing a word or translation
}

// ImportWorkbook converts the sheets of an .xlsx file into a unit
func ImportWorkbook(path string, cfg ImportConfig) (*ImportResult, error) {
	if cfg.UnitID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidUnit)
	}
	cols, err := cfg.columns()
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	res := &ImportResult{Unit: &UnitFile{ID: cfg.UnitID, Title: cfg.Title}}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}

		g := Group{Name: strings.TrimSpace(sheet)}
		for i, row := range rows {
			if i == 0 && cfg.SkipHeader {
				continue
			}
			if blank(row) {
				continue
			}
			w, ok := cols.word(row)
			if !ok {
				res.Skipped = append(res.Skipped, fmt.Sprintf("%s:%d", sheet, i+1))
				continue
			}
			g.Words = append(g.Words, w)
		}
		if len(g.Words) == 0 {
			slog.Debug("skipping empty sheet", "sheet", sheet)
			continue
		}
		res.Imported += len(g.Words)
		res.Unit.Groups = append(res.Unit.Groups, g)
	}

	if len(res.Unit.Groups) == 0 {
		return nil, fmt.Errorf("%w: %s has no words", ErrInvalidUnit, path)
	}
	return res, nil
}

// WriteYAML encodes the unit in the loader's YAML shape
func (u *UnitFile) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(u); err != nil {
		return fmt.Errorf("encode unit %s: %w", u.ID, err)
	}
	return enc.Close()
}

// MarshalYAML writes groups as a mapping in declaration order
func (l groupList) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, g := range l {
		var words yaml.Node
		if err := words.Encode(g.Words); err != nil {
			return nil, fmt.Errorf("group %s: %w", g.Name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: g.Name},
			&words,
		)
	}
	return node, nil
}

type columnSet struct {
	spanish, russian, examples int // zero-based; examples is -1 when unused
}

func (c ImportConfig) columns() (columnSet, error) {
	set := columnSet{examples: -1}
	var err error
	if set.spanish, err = columnIndex(c.SpanishColumn); err != nil {
		return set, err
	}
	if set.russian, err = columnIndex(c.RussianColumn); err != nil {
		return set, err
	}
	if c.ExamplesColumn != "" {
		if set.examples, err = columnIndex(c.ExamplesColumn); err != nil {
			return set, err
		}
	}
	return set, nil
}

func columnIndex(name string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(name))
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return n - 1, nil
}

func (c columnSet) word(row []string) (WordEntry, bool) {
	w := WordEntry{
		Spanish: cell(row, c.spanish),
		Russian: cell(row, c.russian),
	}
	if w.Spanish == "" || w.Russian == "" {
		return w, false
	}
	if c.examples >= 0 {
		for _, ex := range strings.Split(cell(row, c.examples), ";") {
			if ex = strings.TrimSpace(ex); ex != "" {
				w.Examples = append(w.Examples, ex)
			}
		}
	}
	return w, true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/palabras/internal/content"
)

// cmdImport turns an .xlsx workbook into a unit file in the content
// directory. Each sheet becomes a group.
func cmdImport(a *app, args []string) error {
	pos, flags := splitFlags(args)
	if len(pos) < 2 {
		return fmt.Errorf("usage: palabras import <workbook.xlsx> <unit-id> [title] [--force]")
	}

	cfg := content.DefaultImportConfig(pos[1])
	cfg.Title = strings.Join(pos[2:], " ")
	res, err := content.ImportWorkbook(pos[0], cfg)
	if err != nil {
		return err
	}

	dir := a.cfg.ResolveContentDir(a.dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}
	target := filepath.Join(dir, cfg.UnitID+".yaml")
	mode := os.O_CREATE | os.O_WRONLY | os.O_EXCL
	if flags["force"] {
		mode = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(target, mode, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", target)
		}
		return fmt.Errorf("create unit file: %w", err)
	}
	if err := res.Unit.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write unit file: %w", err)
	}

	if err := a.registry.Reload(); err != nil {
		return fmt.Errorf("reload units: %w", err)
	}

	a.term.printf("Imported %d words in %d groups into %s\n", res.Imported, len(res.Unit.Groups), target)
	for _, row := range res.Skipped {
		a.term.printf("  skipped %s (missing word or translation)\n", row)
	}
	return nil
}

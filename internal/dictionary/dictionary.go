// Package dictionary loads the canonical term dictionary: one workbook sheet per
// category, canonical values in the first column below a header row.
package dictionary

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
)

// Dictionary maps each category to its canonical terms in sheet order.
type Dictionary struct {
	terms map[datatypes.Category][]string
}

// New builds a dictionary from in-memory lists. Values are cleaned the same way
// as workbook cells; every category in categories must end up non-empty.
func New(termsByCategory map[datatypes.Category][]string, categories ...datatypes.Category) (*Dictionary, error) {
	if len(categories) == 0 {
		categories = datatypes.AllCategories()
	}

	d := &Dictionary{terms: make(map[datatypes.Category][]string, len(categories))}

	for _, c := range categories {
		cleaned := CleanTerms(termsByCategory[c])
		if len(cleaned) == 0 {
			return nil, normerrors.NewConfigError(string(c),
				fmt.Sprintf("dictionary category %s has no terms", c))
		}

		d.terms[c] = cleaned
	}

	return d, nil
}

// Terms returns the canonical terms of one category.
func (d *Dictionary) Terms(c datatypes.Category) []string {
	return d.terms[c]
}

// Categories returns the loaded categories in processing order.
func (d *Dictionary) Categories() []datatypes.Category {
	out := make([]datatypes.Category, 0, len(d.terms))

	for _, c := range datatypes.AllCategories() {
		if _, ok := d.terms[c]; ok {
			out = append(out, c)
		}
	}

	return out
}

// ByCategory returns a copy of the category → terms mapping.
func (d *Dictionary) ByCategory() map[datatypes.Category][]string {
	out := make(map[datatypes.Category][]string, len(d.terms))
	for c, terms := range d.terms {
		out[c] = append([]string(nil), terms...)
	}

	return out
}

// Total returns the number of canonical terms across categories.
func (d *Dictionary) Total() int {
	n := 0
	for _, terms := range d.terms {
		n += len(terms)
	}

	return n
}

// NormalizeTerm trims surrounding whitespace and applies Unicode NFKC so that
// full-width and compatibility forms from spreadsheets compare equal to typed input.
func NormalizeTerm(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// CleanTerms normalizes values, drops blanks, and removes duplicates keeping the first occurrence.
func CleanTerms(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))

	for _, v := range values {
		v = NormalizeTerm(v)
		if v == "" || seen[v] {
			continue
		}

		seen[v] = true
		out = append(out, v)
	}

	return out
}

// LoadWorkbook reads the dictionary workbook. Each requested category is looked up
// by its Korean sheet label first, then by its identifier. The first row of every
// sheet is a header. A missing file, missing sheet, or empty category is a
// configuration error.
func LoadWorkbook(path string, categories ...datatypes.Category) (*Dictionary, error) {
	if len(categories) == 0 {
		categories = datatypes.AllCategories()
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, normerrors.NewConfigError("dictionary", "dictionary file not found: "+path).WithCause(err)
		}

		return nil, fmt.Errorf("stat dictionary: %w", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary workbook: %w", err)
	}
	defer f.Close()

	sheets := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		sheets[name] = true
	}

	raw := make(map[datatypes.Category][]string, len(categories))

	for _, c := range categories {
		sheet := ""

		for _, candidate := range []string{c.SheetName(), string(c)} {
			if sheets[candidate] {
				sheet = candidate

				break
			}
		}

		if sheet == "" {
			return nil, normerrors.NewConfigError(string(c),
				fmt.Sprintf("required sheet missing from %s: %s", path, c.SheetName()))
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}

		raw[c] = firstColumn(rows)
	}

	d, err := New(raw, categories...)
	if err != nil {
		return nil, err
	}

	attrs := []any{"path", path}
	for _, c := range d.Categories() {
		attrs = append(attrs, string(c), len(d.Terms(c)))
	}

	slog.Info("Dictionary loaded", attrs...)

	return d, nil
}

// firstColumn returns the first cell of every row below the header.
func firstColumn(rows [][]string) []string {
	if len(rows) <= 1 {
		return nil
	}

	out := make([]string, 0, len(rows)-1)

	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}

		out = append(out, row[0])
	}

	return out
}

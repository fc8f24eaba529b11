// Package datatypes defines the enumerations shared across the normalizer
// (term categories and transformation kinds).
package datatypes

import (
	"errors"
	"fmt"
	"strings"
)

// Category validation errors.
var (
	ErrInvalidCategory   = errors.New("invalid category")
	ErrDuplicateCategory = errors.New("duplicate category")
)

// Category is one of the four term classes that partition both the canonical
// dictionary and the vector index.
type Category string

// Category constants; the string value is what gets stored in the index payload.
const (
	EquipmentType  Category = "equipment_type"
	Location       Category = "location"
	PhenomenonCode Category = "phenomenon_code"
	Priority       Category = "priority"
)

// AllCategories returns the categories in processing order.
func AllCategories() []Category {
	return []Category{EquipmentType, Location, PhenomenonCode, Priority}
}

// categoryAliases maps accepted spellings to a Category. The Korean labels are
// the sheet names used by the field dictionary workbook and by older corpus files.
var categoryAliases = map[string]Category{
	"equipment_type":  EquipmentType,
	"location":        Location,
	"phenomenon_code": PhenomenonCode,
	"priority":        Priority,
	"설비유형":            EquipmentType,
	"위치":              Location,
	"현상코드":            PhenomenonCode,
	"우선순위":            Priority,
}

var categoryLabels = map[Category]string{
	EquipmentType:  "equipment type",
	Location:       "location",
	PhenomenonCode: "phenomenon code",
	Priority:       "priority",
}

var categorySheets = map[Category]string{
	EquipmentType:  "설비유형",
	Location:       "위치",
	PhenomenonCode: "현상코드",
	Priority:       "우선순위",
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// Label returns the human readable name used in prompts.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}

	return string(c)
}

// SheetName returns the workbook sheet that holds this category's terms.
func (c Category) SheetName() string {
	return categorySheets[c]
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]

	return ok
}

// ParseCategory converts a string (English identifier or Korean sheet label) to a Category.
func ParseCategory(s string) (Category, error) {
	c, ok := categoryAliases[strings.TrimSpace(s)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}

	return c, nil
}

// ParseCategories converts a list of strings, rejecting unknown and duplicated entries.
func ParseCategories(ss []string) ([]Category, error) {
	if len(ss) == 0 {
		return nil, nil
	}

	out := make([]Category, 0, len(ss))
	seen := make(map[Category]bool, len(ss))

	for _, s := range ss {
		c, err := ParseCategory(s)
		if err != nil {
			return nil, err
		}

		if seen[c] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, c)
		}

		seen[c] = true
		out = append(out, c)
	}

	return out, nil
}

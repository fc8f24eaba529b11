package datatypes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTransformationKind is returned for kinds outside 0..7.
var ErrInvalidTransformationKind = errors.New("invalid transformation kind")

// TransformationKind labels how a variant was derived from its canonical term.
type TransformationKind uint8

// Transformation kinds. Identity is only used for the baseline record that
// repeats the canonical term verbatim.
const (
	Identity TransformationKind = iota
	Lowercase
	Uppercase
	StripWhitespace
	StripSpecialChars
	CompactLowercase
	StripPrefix
	CommonExpression
)

var transformationNames = map[TransformationKind]string{
	Identity:          "identity",
	Lowercase:         "lowercase",
	Uppercase:         "uppercase",
	StripWhitespace:   "strip_whitespace",
	StripSpecialChars: "strip_special_chars",
	CompactLowercase:  "compact_lowercase",
	StripPrefix:       "strip_prefix",
	CommonExpression:  "common_expression",
}

// SynthesizedKinds returns the kinds that are produced by the variant
// synthesizer, in generation order (identity excluded).
func SynthesizedKinds() []TransformationKind {
	return []TransformationKind{
		Lowercase,
		Uppercase,
		StripWhitespace,
		StripSpecialChars,
		CompactLowercase,
		StripPrefix,
		CommonExpression,
	}
}

// String returns the symbolic name of the kind.
func (k TransformationKind) String() string {
	if n, ok := transformationNames[k]; ok {
		return n
	}

	return "unknown"
}

// Valid reports whether k is in 0..7.
func (k TransformationKind) Valid() bool {
	_, ok := transformationNames[k]

	return ok
}

// ParseTransformationKind parses the numeric form stored in the corpus CSV.
func ParseTransformationKind(s string) (TransformationKind, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > int(CommonExpression) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTransformationKind, s)
	}

	return TransformationKind(n), nil
}

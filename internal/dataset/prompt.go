package dataset

import (
	"fmt"
	"strings"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
)

// MaxVariantsPerKind caps how many expressions are kept from one synthesizer answer.
const MaxVariantsPerKind = 5

// SystemPrompt frames the synthesizer as a field-terminology expert.
const SystemPrompt = "너는 산업 현장에서 자주 입력되는 설비/위치/현상 용어 오류 패턴을 잘 아는 전문가야."

// kindInstructions describe each synthesized transformation; %s is the canonical term.
var kindInstructions = map[datatypes.TransformationKind]string{
	datatypes.Lowercase:         "%s을 모두 소문자로 바꾼 표현",
	datatypes.Uppercase:         "%s을 모두 대문자로 바꾼 표현",
	datatypes.StripWhitespace:   "%s에서 공백만 제거한 표현",
	datatypes.StripSpecialChars: "%s에서 특수기호를 제거한 표현",
	datatypes.CompactLowercase:  "%s에서 공백과 특수기호를 제거하고 소문자로 만든 표현",
	datatypes.StripPrefix:       "%s에서 접두어(예: [AGAB])가 있다면 제거한 표현",
	datatypes.CommonExpression:  "%s을 사람들이 자주 쓰는 표현으로 대체 (예: 유의어, 음역, 도메인 표현 등)",
}

// BuildPrompt renders the user prompt asking for variants of term under one kind.
func BuildPrompt(term string, category datatypes.Category, kind datatypes.TransformationKind) (string, error) {
	instruction, ok := kindInstructions[kind]
	if !ok {
		return "", fmt.Errorf("%w: %d has no synthesis instruction", datatypes.ErrInvalidTransformationKind, kind)
	}

	label := category.SheetName()
	if label == "" {
		label = category.Label()
	}

	var b strings.Builder

	fmt.Fprintf(&b, "'%s'이라는 %s 용어를 다음 조건에 맞게 변형해줘.\n\n", term, label)
	fmt.Fprintf(&b, "조건: %s\n\n", fmt.Sprintf(instruction, term))
	fmt.Fprintf(&b, "- 출력은 쉼표로 구분된 최대 %d개의 표현으로 해줘.\n", MaxVariantsPerKind)
	b.WriteString("- 줄바꿈 없이 표현만 출력해줘.")

	return b.String(), nil
}

// ParseVariants splits a synthesizer answer into at most MaxVariantsPerKind
// trimmed, non-empty expressions. Stray newlines are treated as separators.
func ParseVariants(content string) []string {
	fields := strings.FieldsFunc(content, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	out := make([]string, 0, MaxVariantsPerKind)

	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}

		out = append(out, f)
		if len(out) == MaxVariantsPerKind {
			break
		}
	}

	return out
}

// dropIdentity removes variants that equal the canonical term after trimming.
func dropIdentity(variants []string, term string) []string {
	term = strings.TrimSpace(term)
	out := variants[:0]

	for _, v := range variants {
		if strings.TrimSpace(v) == term {
			continue
		}

		out = append(out, v)
	}

	return out
}

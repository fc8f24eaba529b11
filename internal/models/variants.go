package models

import (
	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
)

// VariantRecord is one labeled row of the evaluation corpus.
type VariantRecord struct {
	Input        string                       `json:"input" validate:"required"`
	ExpectedName string                       `json:"expected_name" validate:"required"`
	Kind         datatypes.TransformationKind `json:"type" validate:"lte=7"`
	Category     datatypes.Category           `json:"label" validate:"required,category"`
}

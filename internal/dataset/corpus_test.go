package dataset

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
)

func TestWriteCorpus_BOMAndHeader(t *testing.T) {
	var buf bytes.Buffer

	err := WriteCorpus(&buf, []models.VariantRecord{
		{Input: "pump, 01", ExpectedName: "PUMP-01", Kind: datatypes.StripSpecialChars, Category: datatypes.EquipmentType},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\ufeffinput,expected_name,type,label\n"))
	assert.Contains(t, out, `"pump, 01",PUMP-01,4,equipment_type`)
}

func TestCorpusFile_RoundTrip(t *testing.T) {
	records := []models.VariantRecord{
		{Input: "pump01", ExpectedName: "PUMP-01", Kind: datatypes.CompactLowercase, Category: datatypes.EquipmentType},
		{Input: "PUMP-01", ExpectedName: "PUMP-01", Kind: datatypes.Identity, Category: datatypes.EquipmentType},
	}

	path := filepath.Join(t.TempDir(), "output", "normalization_testset.csv")
	require.NoError(t, WriteCorpusFile(path, records))

	got, err := ReadCorpusFile(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestReadCorpus_LegacyLayout(t *testing.T) {
	// Identity rows carry the expected term in a separate "name" column and labels are Korean.
	in := "\ufeffinput,expected_name,type,label,name\n" +
		"누유발생,누유,7,현상코드,\n" +
		"누유,,0,현상코드,누유\n"

	got, err := ReadCorpus(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "누유", got[0].ExpectedName)
	assert.Equal(t, datatypes.PhenomenonCode, got[0].Category)
	assert.Equal(t, models.VariantRecord{
		Input: "누유", ExpectedName: "누유", Kind: datatypes.Identity, Category: datatypes.PhenomenonCode,
	}, got[1])
}

func TestReadCorpus_TrueNameColumn(t *testing.T) {
	got, err := ReadCorpus(strings.NewReader("input,true_name,type,label\nvalve,VALVE,1,equipment_type\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "VALVE", got[0].ExpectedName)
}

func TestReadCorpus_Errors(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		contains string
	}{
		{name: "empty", in: "", contains: "corpus is empty"},
		{name: "missing column", in: "input,type,label\nx,1,location\n", contains: "header must contain"},
		{name: "bad type", in: "input,expected_name,type,label\nx,X,9,location\n", contains: "corpus line 2"},
		{name: "bad label", in: "input,expected_name,type,label\nx,X,1,weather\n", contains: "corpus line 2"},
		{name: "missing expected", in: "input,expected_name,type,label\nx,X,1,location\ny,,1,location\n", contains: "corpus line 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCorpus(strings.NewReader(tt.in))
			require.ErrorIs(t, err, normerrors.ErrValidation)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestReadCorpusFile_Missing(t *testing.T) {
	_, err := ReadCorpusFile(filepath.Join(t.TempDir(), "nope.csv"))
	require.ErrorIs(t, err, normerrors.ErrConfig)
}

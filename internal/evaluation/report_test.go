package evaluation

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
)

func TestWriteReport_Cells(t *testing.T) {
	var buf bytes.Buffer

	err := WriteReport(&buf, []models.QueryResult{{
		Category:    datatypes.EquipmentType,
		Input:       "pump01",
		TrueName:    "PUMP-01",
		Top1:        cand("PUMP-01", 0.97),
		CorrectTop1: true,
		Elapsed:     1234567 * time.Nanosecond,
	}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(buf.String(), "\ufeff")), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(ReportHeader, ","), lines[0])
	assert.Equal(t, "equipment_type,pump01,PUMP-01,PUMP-01,0.97,true,,,,0.0012", lines[1])
}

func TestReportFile_RoundTrip(t *testing.T) {
	ok := false
	in := []models.QueryResult{
		{
			Category: datatypes.EquipmentType, Input: "밸브", TrueName: "VALVE",
			Top1: cand("MOTOR", 0.92), Top2: cand("VALVE", 0.911),
			CorrectTop2: &ok, Elapsed: 1500 * time.Microsecond,
		},
		{Category: datatypes.Priority, Input: "급함", TrueName: "긴급", Elapsed: 2 * time.Millisecond},
	}

	path := filepath.Join(t.TempDir(), "out", "report.csv")
	require.NoError(t, WriteReportFile(path, in))

	got, err := ReadReportFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, in[0].Top2, got[0].Top2)
	require.NotNil(t, got[0].CorrectTop2)
	assert.False(t, *got[0].CorrectTop2)
	assert.InDelta(t, 0.0015, got[0].Elapsed.Seconds(), 1e-9)
	assert.Nil(t, got[1].Top1)
	assert.Nil(t, got[1].CorrectTop2)

	assert.Equal(t, Summarize(in)[0].Top2Evaluated, Summarize(got)[0].Top2Evaluated)
}

func TestReadReport_Errors(t *testing.T) {
	header := strings.Join(ReportHeader, ",") + "\n"

	tests := []struct {
		name string
		in   string
		err  error
	}{
		{name: "empty", in: "", err: normerrors.ErrValidation},
		{name: "short row", in: header + "location,a,b\n", err: normerrors.ErrValidation},
		{name: "bad label", in: header + "weather,a,b,,,false,,,,0.1\n", err: normerrors.ErrValidation},
		{name: "bad score", in: header + "location,a,b,A,x,false,,,,0.1\n", err: normerrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadReport(strings.NewReader(tt.in))
			require.ErrorIs(t, err, tt.err)
		})
	}

	_, err := ReadReportFile(filepath.Join(t.TempDir(), "absent.csv"))
	require.ErrorIs(t, err, normerrors.ErrConfig)
}

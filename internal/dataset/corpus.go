package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
	"github.com/KoSuyeon/SKAI-project/internal/validation"
)

// utf8BOM prefixes written corpora so spreadsheet tools detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CorpusHeader is the column order of the corpus CSV.
var CorpusHeader = []string{"input", "expected_name", "type", "label"}

// expectedColumns lists accepted names for the expected-term column, in preference order.
var expectedColumns = []string{"expected_name", "true_name", "name"}

// WriteCorpus writes records as CSV with a UTF-8 BOM and a header row.
func WriteCorpus(w io.Writer, records []models.VariantRecord) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(CorpusHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range records {
		row := []string{r.Input, r.ExpectedName, strconv.Itoa(int(r.Kind)), string(r.Category)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush corpus: %w", err)
	}

	return nil
}

// WriteCorpusFile writes the corpus to path, creating parent directories.
func WriteCorpusFile(path string, records []models.VariantRecord) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create corpus file: %w", err)
	}

	bw := bufio.NewWriter(f)

	if err := WriteCorpus(bw, records); err != nil {
		_ = f.Close()

		return err
	}

	if err := bw.Flush(); err != nil {
		_ = f.Close()

		return fmt.Errorf("flush corpus file: %w", err)
	}

	return f.Close()
}

// ReadCorpus parses a corpus CSV. Columns are located by header name; the
// expected-term column may be called expected_name, true_name or name, and the
// label may be an identifier or a Korean sheet label. Rows failing validation
// produce a validation error naming the line.
func ReadCorpus(r io.Reader) ([]models.VariantRecord, error) {
	br := bufio.NewReader(r)

	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, normerrors.NewValidationError("header", "corpus is empty")
		}

		return nil, fmt.Errorf("read corpus header: %w", err)
	}

	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	var records []models.VariantRecord

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read corpus line %d: %w", line, err)
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, normerrors.NewValidationError("line", fmt.Sprintf("corpus line %d: %v", line, err))
		}

		records = append(records, rec)
	}

	return records, nil
}

// ReadCorpusFile reads a corpus from disk. A missing file is a configuration error.
func ReadCorpusFile(path string) ([]models.VariantRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, normerrors.NewConfigError("corpus", "corpus file not found: "+path).WithCause(err)
		}

		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	return ReadCorpus(f)
}

type corpusColumns struct {
	input, kind, label int
	// expected holds every expected-term column present; the first non-empty cell wins.
	expected []int
}

func locateColumns(header []string) (corpusColumns, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	cols := corpusColumns{input: -1, kind: -1, label: -1}

	if i, ok := index["input"]; ok {
		cols.input = i
	}

	for _, name := range expectedColumns {
		if i, ok := index[name]; ok {
			cols.expected = append(cols.expected, i)
		}
	}

	if i, ok := index["type"]; ok {
		cols.kind = i
	}

	if i, ok := index["label"]; ok {
		cols.label = i
	}

	if cols.input < 0 || len(cols.expected) == 0 || cols.kind < 0 || cols.label < 0 {
		return cols, normerrors.NewValidationError("header",
			fmt.Sprintf("corpus header must contain input, expected_name, type and label; got %v", header))
	}

	return cols, nil
}

func parseRow(row []string, cols corpusColumns) (models.VariantRecord, error) {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}

		return ""
	}

	kind, err := datatypes.ParseTransformationKind(cell(cols.kind))
	if err != nil {
		return models.VariantRecord{}, err
	}

	category, err := datatypes.ParseCategory(cell(cols.label))
	if err != nil {
		return models.VariantRecord{}, err
	}

	expected := ""
	for _, i := range cols.expected {
		if expected = strings.TrimSpace(cell(i)); expected != "" {
			break
		}
	}

	rec := models.VariantRecord{
		Input:        cell(cols.input),
		ExpectedName: expected,
		Kind:         kind,
		Category:     category,
	}

	if err := validation.ValidateStruct(rec); err != nil {
		return models.VariantRecord{}, err
	}

	return rec, nil
}

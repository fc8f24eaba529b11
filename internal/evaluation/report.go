package evaluation

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
)

// ReportHeader is the column order of the per-query report CSV.
var ReportHeader = []string{
	"label", "input", "true_name",
	"top1_value", "top1_score", "is_correct_top1",
	"top2_value", "top2_score", "is_correct_top2",
	"search_time_sec",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteReport writes one row per result. Missing candidates and an unevaluated
// top-2 leave their cells empty; search time is in seconds rounded to four decimals.
func WriteReport(w io.Writer, results []models.QueryResult) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(ReportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range results {
		top1Value, top1Score := candidateCells(r.Top1)
		top2Value, top2Score := candidateCells(r.Top2)

		correct2 := ""
		if r.CorrectTop2 != nil {
			correct2 = strconv.FormatBool(*r.CorrectTop2)
		}

		row := []string{
			string(r.Category), r.Input, r.TrueName,
			top1Value, top1Score, strconv.FormatBool(r.CorrectTop1),
			top2Value, top2Score, correct2,
			strconv.FormatFloat(roundTo(r.Elapsed.Seconds(), 4), 'f', 4, 64),
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}

	return nil
}

// WriteReportFile writes the report to path, creating parent directories.
func WriteReportFile(path string, results []models.QueryResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}

	bw := bufio.NewWriter(f)

	if err := WriteReport(bw, results); err != nil {
		_ = f.Close()

		return err
	}

	if err := bw.Flush(); err != nil {
		_ = f.Close()

		return fmt.Errorf("flush report file: %w", err)
	}

	return f.Close()
}

// ReadReport parses a report written by WriteReport.
func ReadReport(r io.Reader) ([]models.QueryResult, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = len(ReportHeader)

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, normerrors.NewValidationError("header", "report is empty")
		}

		return nil, fmt.Errorf("read report header: %w", err)
	}

	var results []models.QueryResult

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, normerrors.NewValidationError("line", fmt.Sprintf("report line %d: %v", line, err))
		}

		res, err := parseReportRow(row)
		if err != nil {
			return nil, normerrors.NewValidationError("line", fmt.Sprintf("report line %d: %v", line, err))
		}

		results = append(results, res)
	}

	return results, nil
}

// ReadReportFile reads a report from disk. A missing file is a configuration error.
func ReadReportFile(path string) ([]models.QueryResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, normerrors.NewConfigError("report", "report file not found: "+path).WithCause(err)
		}

		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	return ReadReport(f)
}

func parseReportRow(row []string) (models.QueryResult, error) {
	category, err := datatypes.ParseCategory(row[0])
	if err != nil {
		return models.QueryResult{}, err
	}

	res := models.QueryResult{Category: category, Input: row[1], TrueName: row[2]}

	if res.Top1, err = parseCandidate(row[3], row[4]); err != nil {
		return res, fmt.Errorf("top1: %w", err)
	}

	if res.CorrectTop1, err = strconv.ParseBool(row[5]); err != nil {
		return res, fmt.Errorf("is_correct_top1: %w", err)
	}

	if res.Top2, err = parseCandidate(row[6], row[7]); err != nil {
		return res, fmt.Errorf("top2: %w", err)
	}

	if row[8] != "" {
		ok, err := strconv.ParseBool(row[8])
		if err != nil {
			return res, fmt.Errorf("is_correct_top2: %w", err)
		}

		res.CorrectTop2 = &ok
	}

	secs, err := strconv.ParseFloat(row[9], 64)
	if err != nil {
		return res, fmt.Errorf("search_time_sec: %w", err)
	}

	res.Elapsed = time.Duration(secs * float64(time.Second))

	return res, nil
}

func candidateCells(c *models.Candidate) (string, string) {
	if c == nil {
		return "", ""
	}

	return c.Value, strconv.FormatFloat(c.Score, 'f', -1, 64)
}

func parseCandidate(value, score string) (*models.Candidate, error) {
	if value == "" && score == "" {
		return nil, nil //nolint:nilnil // absent candidate
	}

	s, err := strconv.ParseFloat(score, 64)
	if err != nil {
		return nil, err
	}

	return &models.Candidate{Value: value, Score: s}, nil
}

func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))

	return math.Round(x*p) / p
}

package evaluation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/embeddings"
	"github.com/KoSuyeon/SKAI-project/internal/indexer"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/search"
	"github.com/KoSuyeon/SKAI-project/internal/vectorstore"
)

// fakeQuerier answers from a fixed table keyed by input.
type fakeQuerier struct {
	matches map[string]models.Match
	errs    map[string]error
}

func (f *fakeQuerier) Query(_ context.Context, input string, _ datatypes.Category) (models.Match, error) {
	if err := f.errs[input]; err != nil {
		return models.Match{}, err
	}

	return f.matches[input], nil
}

func (f *fakeQuerier) QueryText(input string, _ datatypes.Category) string {
	return strings.TrimSpace(input)
}

func cand(v string, s float64) *models.Candidate { return &models.Candidate{Value: v, Score: s} }

func rec(input, expected string, c datatypes.Category) models.VariantRecord {
	return models.VariantRecord{Input: input, ExpectedName: expected, Kind: datatypes.CommonExpression, Category: c}
}

func TestRun_ClassifiesInCorpusOrder(t *testing.T) {
	q := &fakeQuerier{
		matches: map[string]models.Match{
			"pump01":  {Top1: cand("PUMP-01", 0.97), Top2: cand("PUMP-02", 0.90)},
			"밸브":      {Top1: cand("MOTOR", 0.920), Top2: cand("VALVE", 0.911)},
			"급함":      {Top1: cand("긴급", 0.88)},
			"unknown": {},
		},
		errs: map[string]error{"boom": errors.New("provider down")},
	}

	corpus := []models.VariantRecord{
		rec("pump01", "PUMP-01", datatypes.EquipmentType),
		rec("밸브", "VALVE", datatypes.EquipmentType),
		rec("급함", "긴급", datatypes.Priority),
		rec("unknown", "긴급", datatypes.Priority),
		rec("boom", "A동", datatypes.Location),
	}

	for _, workers := range []int{1, 3} {
		results, err := NewEvaluator(q, WithWorkers(workers)).Run(context.Background(), corpus)
		require.NoError(t, err)
		require.Len(t, results, len(corpus))

		for i, r := range results {
			assert.Equal(t, corpus[i].Input, r.Input)
			assert.Equal(t, corpus[i].ExpectedName, r.TrueName)
		}

		assert.True(t, results[0].CorrectTop1)
		assert.Nil(t, results[0].CorrectTop2, "gap 0.07 is not evaluated")

		assert.False(t, results[1].CorrectTop1)
		require.NotNil(t, results[1].CorrectTop2, "gap 0.009 is evaluated")
		assert.True(t, *results[1].CorrectTop2)
		assert.True(t, results[1].CorrectCombined())

		assert.True(t, results[2].CorrectTop1)
		assert.Nil(t, results[2].Top2)

		assert.False(t, results[3].CorrectTop1)
		assert.Nil(t, results[3].Top1)

		assert.False(t, results[4].CorrectTop1, "failed query is recorded as incorrect")
		assert.Nil(t, results[4].Top1)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEvaluator(&fakeQuerier{}).Run(ctx, []models.VariantRecord{rec("x", "X", datatypes.Location)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_IsIdempotent(t *testing.T) {
	emb := embeddings.NewMockClientWithDimensions(96)
	store := vectorstore.NewMemoryStore()

	_, err := indexer.NewBuilder(indexer.BuilderParams{
		Embedder: emb, Store: store, Collection: "dic_table", Dimensions: 96,
	}).Build(context.Background(), map[datatypes.Category][]string{
		datatypes.EquipmentType:  {"PUMP-01", "PUMP-02", "VALVE"},
		datatypes.PhenomenonCode: {"누유", "진동"},
	})
	require.NoError(t, err)

	engine := search.NewEngine(search.EngineParams{Embedder: emb, Store: store, Collection: "dic_table"})
	corpus := []models.VariantRecord{
		rec("pump 01", "PUMP-01", datatypes.EquipmentType),
		rec("valve", "VALVE", datatypes.EquipmentType),
		rec("누유 발생", "누유", datatypes.PhenomenonCode),
		{Input: "VALVE", ExpectedName: "VALVE", Kind: datatypes.Identity, Category: datatypes.EquipmentType},
	}

	first, err := NewEvaluator(engine).Run(context.Background(), corpus)
	require.NoError(t, err)

	second, err := NewEvaluator(engine, WithWorkers(2)).Run(context.Background(), corpus)
	require.NoError(t, err)

	for i := range first {
		first[i].Elapsed, second[i].Elapsed = 0, 0
	}

	assert.Equal(t, first, second)
	assert.True(t, first[3].CorrectTop1, "identity record resolves to itself")
	assert.Equal(t, "설비에 '누유 발생' 현상이 발생했습니다.", first[2].QueryText)
}

func TestSummarize(t *testing.T) {
	tr, fa := true, false

	results := []models.QueryResult{
		{Category: datatypes.Priority, CorrectTop1: true, Elapsed: 10 * time.Millisecond},
		{Category: datatypes.EquipmentType, CorrectTop1: true, Elapsed: 20 * time.Millisecond},
		{Category: datatypes.EquipmentType, CorrectTop1: false, CorrectTop2: &tr, Elapsed: 40 * time.Millisecond},
		{Category: datatypes.EquipmentType, CorrectTop1: false, CorrectTop2: &fa, Elapsed: 30 * time.Millisecond},
		{Category: datatypes.EquipmentType, CorrectTop1: false, Elapsed: 10 * time.Millisecond},
	}

	got := Summarize(results)
	require.Len(t, got, 2)

	eq := got[0]
	assert.Equal(t, datatypes.EquipmentType, eq.Category, "sorted by category name")
	assert.Equal(t, 4, eq.Count)
	assert.InDelta(t, 0.25, eq.Top1Accuracy, 1e-9)
	assert.InDelta(t, 0.5, eq.Top2Accuracy, 1e-9, "one of two evaluated")
	assert.Equal(t, 2, eq.Top2Evaluated)
	assert.InDelta(t, 0.5, eq.CombinedAccuracy, 1e-9)
	assert.Equal(t, 25*time.Millisecond, eq.AvgLatency)

	pr := got[1]
	assert.Equal(t, datatypes.Priority, pr.Category)
	assert.Zero(t, pr.Top2Accuracy, "no evaluated top-2")
	assert.Zero(t, pr.Top2Evaluated)
	assert.InDelta(t, 1.0, pr.Top1Accuracy, 1e-9)

	assert.Empty(t, Summarize(nil))
}

func TestSummarize_CombinedNeverBelowTop1(t *testing.T) {
	gofakeit.Seed(7)

	categories := datatypes.AllCategories()
	results := make([]models.QueryResult, 500)

	for i := range results {
		r := models.QueryResult{
			Category:    categories[gofakeit.Number(0, len(categories)-1)],
			CorrectTop1: gofakeit.Bool(),
			Elapsed:     time.Duration(gofakeit.Number(1, 50)) * time.Millisecond,
		}

		if gofakeit.Bool() {
			ok := gofakeit.Bool()
			r.CorrectTop2 = &ok
		}

		results[i] = r
	}

	for _, s := range Summarize(results) {
		assert.GreaterOrEqual(t, s.CombinedAccuracy, s.Top1Accuracy, s.Category)
		assert.LessOrEqual(t, s.CombinedAccuracy, 1.0)
		assert.LessOrEqual(t, s.Top2Evaluated, s.Count)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer

	err := RenderSummary(&buf, []models.CategorySummary{{
		Category:         datatypes.Location,
		Top1Accuracy:     2.0 / 3.0,
		Top2Accuracy:     0.5,
		CombinedAccuracy: 5.0 / 6.0,
		AvgLatency:       12345 * time.Microsecond,
		Count:            6,
		Top2Evaluated:    2,
	}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"location", "66.67", "50.00", "83.33", "0.0123", "6", "2"}, strings.Fields(lines[1]))
}

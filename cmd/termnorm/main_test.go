package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KoSuyeon/SKAI-project/internal/config"
	"github.com/KoSuyeon/SKAI-project/internal/evaluation"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
	"github.com/KoSuyeon/SKAI-project/internal/vectorstore"
)

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"generate", "index", "evaluate", "summarize", "search", "serve", "worker"} {
		assert.Contains(t, names, want)
	}
}

func TestRequireFlag(t *testing.T) {
	err := requireFlag("output", "  ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, normerrors.ErrConfig))
	assert.NoError(t, requireFlag("output", "out.csv"))
}

func TestGenerate_MissingCredentialIsConfigError(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	root := newRootCmd()
	root.SetArgs([]string{"generate", "--dictionary", filepath.Join(t.TempDir(), "missing.xlsx")})
	root.SetOut(&bytes.Buffer{})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, normerrors.ErrConfig))
}

func TestSummarize_RendersReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	report := "\ufefflabel,input,true_name,top1_value,top1_score,is_correct_top1,top2_value,top2_score,is_correct_top2,search_time_sec\n" +
		"location,a동 1층,A동 1층,A동 1층,0.98,True,,,,0.0123\n" +
		"location,옥상,B동 옥상,기타,0.71,False,B동 옥상,0.705,True,0.0101\n"
	require.NoError(t, os.WriteFile(path, []byte(report), 0o600))

	var out bytes.Buffer

	root := newRootCmd()
	root.SetArgs([]string{"summarize", "--report", path})
	root.SetOut(&out)

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "location")
	assert.Contains(t, out.String(), "50.00")
	assert.Contains(t, out.String(), "100.00")
}

func writeEvalCorpus(t *testing.T) string {
	t.Helper()

	corpus := filepath.Join(t.TempDir(), "corpus.csv")
	require.NoError(t, os.WriteFile(corpus, []byte("input,expected_name,type,label\nPUMP-01 ,PUMP-01,0,equipment_type\n"), 0o600))

	return corpus
}

func TestEvaluate_MissingCollectionFails(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "mock")
	t.Setenv("VECTOR_STORE", "memory")

	output := filepath.Join(t.TempDir(), "out.csv")

	root := newRootCmd()
	root.SetArgs([]string{"evaluate", "--corpus", writeEvalCorpus(t), "--output", output})
	root.SetOut(&bytes.Buffer{})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, normerrors.ErrNotFound))
	assert.Equal(t, normerrors.ExitNoInput, normerrors.ExitCode(err))
	assert.NoFileExists(t, output)
}

func TestEvaluate_EmptyCollectionScoresMisses(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")

	t.Setenv("EMBEDDING_PROVIDER", "mock")
	t.Setenv("EMBEDDING_DIMENSIONS", "8")
	t.Setenv("VECTOR_STORE", "sqlite")
	t.Setenv("SQLITE_PATH", dbPath)

	ctx := context.Background()

	cfg, err := config.Load()
	require.NoError(t, err)

	store, err := vectorstore.Open(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, store.EnsureCollection(ctx, cfg.CollectionName, cfg.EmbeddingDimensions))
	require.NoError(t, store.Close())

	output := filepath.Join(t.TempDir(), "out.csv")

	root := newRootCmd()
	root.SetArgs([]string{"evaluate", "--corpus", writeEvalCorpus(t), "--output", output})
	root.SetOut(&bytes.Buffer{})

	require.NoError(t, root.ExecuteContext(ctx))

	results, err := evaluation.ReadReportFile(output)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Top1)
	assert.False(t, results[0].CorrectTop1)
	assert.Nil(t, results[0].CorrectTop2)
}

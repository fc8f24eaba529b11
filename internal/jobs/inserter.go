package jobs

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
)

// InsertResult counts the outcome of one batch insert.
type InsertResult struct {
	Inserted   int
	Duplicates int
}

// JobInserter enqueues index jobs in batches.
type JobInserter interface {
	InsertIndexTermJobs(ctx context.Context, args []IndexTermArgs) (InsertResult, error)
}

// RiverJobInserter inserts through a River client; it needs no workers.
type RiverJobInserter struct {
	client *river.Client[pgx.Tx]
}

func NewRiverJobInserter(client *river.Client[pgx.Tx]) *RiverJobInserter {
	return &RiverJobInserter{client: client}
}

// InsertIndexTermJobs writes the batch with a single InsertMany round trip.
// Terms that already have a live job are reported as duplicates.
func (r *RiverJobInserter) InsertIndexTermJobs(ctx context.Context, args []IndexTermArgs) (InsertResult, error) {
	if len(args) == 0 {
		return InsertResult{}, nil
	}

	params := make([]river.InsertManyParams, len(args))
	for i, a := range args {
		params[i] = river.InsertManyParams{Args: a}
	}

	results, err := r.client.InsertMany(ctx, params)
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert %d %s jobs: %w", len(args), KindIndexTerm, err)
	}

	var res InsertResult

	for _, jr := range results {
		if jr.UniqueSkippedAsDuplicate {
			res.Duplicates++
		} else {
			res.Inserted++
		}
	}

	return res, nil
}

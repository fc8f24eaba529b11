// Package jobs provides River job workers for asynchronous term indexing.
package jobs

import (
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
)

// KindIndexTerm is the River job kind for IndexTermArgs.
const KindIndexTerm = "index_term"

// IndexTermArgs contains the arguments for indexing one canonical term.
type IndexTermArgs struct {
	// Collection is the vector collection the point is written to.
	Collection string `json:"collection"`

	// Category partitions the index; the point is only returned for this category.
	Category datatypes.Category `json:"category"`

	// Value is the canonical term.
	Value string `json:"value"`
}

// Kind returns the job type identifier for River.
func (IndexTermArgs) Kind() string { return KindIndexTerm }

// InsertOpts makes a term unique while a job for it is still queued or running.
// Completed jobs are left out so a later reindex enqueues again.
func (IndexTermArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStatePending,
				rivertype.JobStateRetryable,
				rivertype.JobStateRunning,
				rivertype.JobStateScheduled,
			},
		},
	}
}

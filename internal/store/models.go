package store

import (
	"time"

	"github.com/alphalat/alphalat/internal/epochs"
	"github.com/alphalat/alphalat/internal/lateral"
	"github.com/alphalat/alphalat/internal/spectral"
)

type Dataset struct {
	ID        int64                    `json:"id"`
	Subject   string                   `json:"subject"`
	Task      epochs.Task              `json:"task"`
	Channels  []string                 `json:"channels"` // Decoded from JSON
	SFreq     float64                  `json:"sfreq"`
	TMin      float64                  `json:"tmin"`
	NTimes    int                      `json:"n_times"`
	EventID   map[epochs.Condition]int `json:"event_id"` // Decoded from JSON
	NTrials   int                      `json:"n_trials"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// SliceCount is the trial count of one analysis slice in a run.
type SliceCount struct {
	Label  string `json:"label"`
	Trials int    `json:"trials"`
}

type Run struct {
	ID         string          `json:"id"`
	DatasetID  int64           `json:"dataset_id"`
	Subject    string          `json:"subject"` // Filled from the dataset on read
	Task       epochs.Task     `json:"task"`    // Filled from the dataset on read
	Params     spectral.Params `json:"params"`
	Slices     []SliceCount    `json:"slices"`
	Rows       []lateral.Row   `json:"rows"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Table returns the run's rows as a lateralization table.
func (r *Run) Table() *lateral.Table {
	return &lateral.Table{Rows: r.Rows}
}

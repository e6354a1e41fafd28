package pipeline

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
)

// StageResult is the journal entry of one executed or skipped stage.
type StageResult struct {
	Name      string    `json:"name"`
	Skipped   bool      `json:"skipped"`
	Started   time.Time `json:"started"`
	DurationS float64   `json:"duration_s"`
	Artifacts []string  `json:"artifacts"`
}

// State is the run journal, rewritten after every stage so a crashed
// run still shows how far it got.
type State struct {
	RunID   string        `json:"run_id"`
	Mode    string        `json:"mode"`
	Started time.Time     `json:"started"`
	Stages  []StageResult `json:"stages"`
}

// record appends a stage result and persists the journal.
func (s *State) record(path string, res StageResult) error {
	s.Stages = append(s.Stages, res)
	return s.save(path)
}

func (s *State) save(path string) error {
	buf, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode run state")
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return errors.Wrap(err, "write run state")
	}
	return nil
}

// LoadState reads a run journal written by a previous invocation.
func LoadState(path string) (*State, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read run state")
	}

	var s State
	if err := json.Unmarshal(buf, &s); err != nil {
		return nil, errors.Wrapf(err, "decode run state %s", path)
	}
	return &s, nil
}

package discovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/RG-FIDES/square-one-coffee/internal/model"
)

// Checkpoint is the sweep's resume state, written after every completed cell.
// A run killed mid-sweep restarts at the next uncompleted cell with its seen
// set and collected records intact.
type Checkpoint struct {
	Completed []string     `json:"completed_cells"`
	Seen      []string     `json:"seen_place_ids"`
	Cafes     []model.Cafe `json:"cafes"`

	done map[string]struct{}
}

// LoadCheckpoint reads resume state from path. A missing file or empty path
// yields a fresh checkpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	cp := &Checkpoint{done: make(map[string]struct{})}
	if path == "" {
		return cp, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cp, nil
		}
		return nil, eris.Wrapf(err, "checkpoint: read %s", path)
	}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, eris.Wrapf(err, "checkpoint: parse %s", path)
	}

	cp.done = make(map[string]struct{}, len(cp.Completed))
	for _, key := range cp.Completed {
		cp.done[key] = struct{}{}
	}
	return cp, nil
}

// Done reports whether the cell was completed in a prior run.
func (c *Checkpoint) Done(key string) bool {
	_, ok := c.done[key]
	return ok
}

// MarkDone records a completed cell together with the current seen set and
// collected records.
func (c *Checkpoint) MarkDone(key string, seen SeenSet, cafes map[string]model.Cafe) {
	if _, ok := c.done[key]; !ok {
		c.done[key] = struct{}{}
		c.Completed = append(c.Completed, key)
	}
	c.Seen = seen.IDs()
	sort.Strings(c.Seen)
	c.UpdateCafes(cafes)
}

// UpdateCafes refreshes the checkpointed records, for detail-fetch progress.
func (c *Checkpoint) UpdateCafes(cafes map[string]model.Cafe) {
	out := make([]model.Cafe, 0, len(cafes))
	for _, cafe := range cafes {
		out = append(out, cafe)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlaceID < out[j].PlaceID })
	c.Cafes = out
}

// Save atomically writes the checkpoint. A no-op when path is empty.
func (c *Checkpoint) Save(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "checkpoint: mkdir for %s", path)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "checkpoint: write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrapf(err, "checkpoint: rename %s", path)
	}
	return nil
}

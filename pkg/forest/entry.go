package forest

import "sort"

// Entry is one row of the flat output inventory.
//
// Successful rows carry File=true and no status. Not-found and failed
// resolutions carry Status (404/500) and, for failures, a human-readable
// Error. A row never mixes both shapes.
type Entry struct {
	// Path is the canonical slash-rooted path of the resource. For rows
	// produced by a failed recursive expansion it is the branch spec
	// itself (e.g. "/bar/*").
	Path string `json:"path"`

	// File is true when the remote item is a file.
	File bool `json:"file,omitempty"`

	// Status is present only on error/not-found rows (404, 500).
	Status int `json:"status,omitempty"`

	// Error is a human-readable cause, present only on failure rows.
	Error string `json:"error,omitempty"`
}

// collector accumulates entries from concurrently completing branches.
//
// Rows are keyed by path so the final inventory is a set: when the same
// path arrives from two different specs, successful file rows take
// precedence over error/not-found rows; between two non-file rows the
// first one wins.
type collector struct {
	rows map[string]Entry
}

func newCollector() *collector {
	return &collector{rows: make(map[string]Entry)}
}

// add inserts a row, applying the precedence rule. Callers must hold the
// crawl mutex.
func (c *collector) add(e Entry) {
	if existing, ok := c.rows[e.Path]; ok {
		// A resolved file row is never displaced by an error row.
		if existing.File && !e.File {
			return
		}
		// Between two non-file rows, keep the first.
		if !existing.File && !e.File {
			return
		}
	}
	c.rows[e.Path] = e
}

// entries returns the accumulated rows sorted lexicographically by path.
func (c *collector) entries() []Entry {
	out := make([]Entry, 0, len(c.rows))
	for _, e := range c.rows {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

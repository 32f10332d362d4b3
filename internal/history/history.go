// Package history remembers when each host was last connected to.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/treykane/sshman/internal/model"
)

type store struct {
	LastUsed map[string]int64 `json:"last_used"`
}

// History is the last-connected journal kept in history.json.
type History struct {
	path string
	now  func() time.Time
}

// New returns a history backed by path.
func New(path string) *History {
	return &History{path: path, now: time.Now}
}

// Path returns the journal location.
func (h *History) Path() string { return h.path }

// Touch records a connection to name.
func (h *History) Touch(name string) error {
	st, err := h.load()
	if err != nil {
		return err
	}
	st.LastUsed[name] = h.now().Unix()
	return h.save(st)
}

// Forget drops name, e.g. after the host is deleted.
func (h *History) Forget(name string) error {
	st, err := h.load()
	if err != nil {
		return err
	}
	if _, ok := st.LastUsed[name]; !ok {
		return nil
	}
	delete(st.LastUsed, name)
	return h.save(st)
}

// LastUsed returns last connection timestamps by host name.
func (h *History) LastUsed() (map[string]int64, error) {
	st, err := h.load()
	if err != nil {
		return nil, err
	}
	return st.LastUsed, nil
}

// SortRecent returns a new slice ordered by most recent connection. Hosts
// never connected to keep their stored order after the rest.
func SortRecent(recs []model.HostRecord, lastUsed map[string]int64) []model.HostRecord {
	out := append([]model.HostRecord(nil), recs...)
	sort.SliceStable(out, func(i, j int) bool {
		return lastUsed[out[i].Name] > lastUsed[out[j].Name]
	})
	return out
}

func (h *History) load() (store, error) {
	b, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return store{LastUsed: map[string]int64{}}, nil
		}
		return store{}, err
	}
	var st store
	if err := json.Unmarshal(b, &st); err != nil {
		return store{LastUsed: map[string]int64{}}, nil
	}
	if st.LastUsed == nil {
		st.LastUsed = map[string]int64{}
	}
	return st, nil
}

func (h *History) save(st store) error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(h.path, b, 0o600)
}

package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/treykane/sshman/internal/model"
)

func TestTouchAndLastUsed(t *testing.T) {
	h := New(filepath.Join(t.TempDir(), "history.json"))
	if err := h.Touch("api"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	got, err := h.LastUsed()
	if err != nil {
		t.Fatalf("last used: %v", err)
	}
	if got["api"] <= 0 {
		t.Fatalf("expected timestamp for api, got %+v", got)
	}

	if err := h.Forget("api"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	got, err = h.LastUsed()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got["api"]; ok {
		t.Fatalf("expected api to be forgotten, got %+v", got)
	}
}

func TestCorruptFileIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	h := New(path)
	got, err := h.LastUsed()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty history, got %+v", got)
	}
}

func TestSortRecent(t *testing.T) {
	recs := []model.HostRecord{
		{Name: "db"},
		{Name: "api"},
		{Name: "cache"},
		{Name: "web"},
	}
	now := time.Now().Unix()
	sorted := SortRecent(recs, map[string]int64{
		"api": now,
		"db":  now - 60,
	})
	want := []string{"api", "db", "cache", "web"}
	for i, name := range want {
		if sorted[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, sorted[i].Name)
		}
	}
	if recs[0].Name != "db" {
		t.Fatal("input slice must not be reordered")
	}
}

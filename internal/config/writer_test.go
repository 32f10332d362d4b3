package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/treykane/sshman/internal/model"
)

func TestFormatHostBlock_Basic(t *testing.T) {
	rec := model.HostRecord{
		Name:     "prod-db",
		HostName: "db.example.com",
		User:     "deploy",
		Port:     5432,
	}
	got := FormatHostBlock(rec)
	want := "Host prod-db\n  HostName db.example.com\n  User deploy\n  Port 5432\n"
	if got != want {
		t.Fatalf("block mismatch\nwant=%q\n got=%q", want, got)
	}
}

func TestFormatHostBlock_Defaults(t *testing.T) {
	rec := model.HostRecord{Name: "myhost", HostName: "myhost", Port: 22}
	got := FormatHostBlock(rec)
	if strings.Contains(got, "Port") || strings.Contains(got, "HostName") {
		t.Fatalf("expected default port and same hostname to be omitted, got: %q", got)
	}
}

func TestFormatHostBlock_RoundTripsThroughParse(t *testing.T) {
	rec := model.HostRecord{Name: "full", HostName: "full.example.com", User: "admin", Port: 2222, KeyPath: "~/.ssh/id_ed25519"}
	got, err := Parse(strings.NewReader(FormatHostBlock(rec)), "block", "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != rec {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestExportFile_AppendsAndSkipsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".ssh", "config")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	initial := "Host existing\n  HostName existing.example.com"
	if err := os.WriteFile(path, []byte(initial), 0o600); err != nil {
		t.Fatal(err)
	}

	recs := []model.HostRecord{
		{Name: "existing", HostName: "other", Port: 22},
		{Name: "new-host", HostName: "new.example.com", User: "deploy", Port: 22},
	}
	res, err := ExportFile(path, recs)
	if err != nil {
		t.Fatalf("ExportFile failed: %v", err)
	}
	if res.Written != 1 || len(res.Skipped) != 1 || res.Skipped[0] != "existing" {
		t.Fatalf("unexpected result: %+v", res)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(content)
	if !strings.Contains(got, "Host existing\n  HostName existing.example.com\n\nHost new-host\n") {
		t.Fatalf("unexpected file content:\n%s", got)
	}

	res, err = ExportFile(path, recs)
	if err != nil {
		t.Fatal(err)
	}
	if res.Written != 0 {
		t.Fatalf("second export should write nothing, got %+v", res)
	}
}

package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/treykane/sshman/internal/model"
)

// ExportResult summarizes an export into an existing ssh config.
type ExportResult struct {
	Written int
	Skipped []string
}

// FormatHostBlock produces an ssh config Host block for rec. Only non-empty,
// non-default fields are included.
func FormatHostBlock(rec model.HostRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Host %s\n", rec.Name))
	if rec.HostName != "" && rec.HostName != rec.Name {
		b.WriteString(fmt.Sprintf("  HostName %s\n", rec.HostName))
	}
	if rec.User != "" {
		b.WriteString(fmt.Sprintf("  User %s\n", rec.User))
	}
	if rec.Port != 0 && rec.Port != model.DefaultPort {
		b.WriteString(fmt.Sprintf("  Port %d\n", rec.Port))
	}
	if rec.KeyPath != "" {
		b.WriteString(fmt.Sprintf("  IdentityFile %s\n", rec.KeyPath))
	}
	return b.String()
}

// Export writes one Host block per record, separated by blank lines.
func Export(w io.Writer, recs []model.HostRecord) error {
	for i, r := range recs {
		block := FormatHostBlock(r)
		if i > 0 {
			block = "\n" + block
		}
		if _, err := io.WriteString(w, block); err != nil {
			return err
		}
	}
	return nil
}

// ExportFile appends records to the ssh config at path. Records whose name
// already has a Host block there are skipped, so running it twice is safe.
func ExportFile(path string, recs []model.HostRecord) (ExportResult, error) {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return ExportResult{}, fmt.Errorf("read ssh config: %w", err)
	}

	present := map[string]bool{}
	if len(existing) > 0 {
		hosts, err := Parse(strings.NewReader(string(existing)), path, "")
		if err != nil {
			return ExportResult{}, err
		}
		for _, h := range hosts {
			present[h.Name] = true
		}
	}

	var res ExportResult
	var todo []model.HostRecord
	for _, r := range recs {
		if present[r.Name] {
			res.Skipped = append(res.Skipped, r.Name)
			continue
		}
		present[r.Name] = true
		todo = append(todo, r)
	}
	if len(todo) == 0 {
		return res, nil
	}

	var b strings.Builder
	if len(existing) > 0 {
		if !strings.HasSuffix(string(existing), "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if err := Export(&b, todo); err != nil {
		return ExportResult{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return ExportResult{}, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return ExportResult{}, fmt.Errorf("open ssh config for append: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(b.String()); err != nil {
		return ExportResult{}, fmt.Errorf("write host blocks: %w", err)
	}
	res.Written = len(todo)
	return res, nil
}

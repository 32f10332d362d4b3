// Package config converts between the host registry and OpenSSH client
// configuration files: importing Host blocks into records and exporting
// records as Host blocks.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/treykane/sshman/internal/hoststore"
	"github.com/treykane/sshman/internal/model"
)

// MissingFileError is returned when the ssh config to import does not exist.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// ImportOptions controls how parsed hosts are merged into the store.
type ImportOptions struct {
	// SkipExisting drops hosts whose name is already in the store or appeared
	// earlier in the same file. When false every parsed host is appended.
	SkipExisting bool
	Logger       *slog.Logger
}

// ImportResult summarizes one import.
type ImportResult struct {
	Imported int
	Skipped  []string
	Records  []model.HostRecord
}

// ImportFile parses the ssh config at path and appends its hosts to store.
//
// A path that does not exist yields a *MissingFileError and leaves the store
// alone. The file is parsed completely before anything is stored (see Parse),
// so a malformed Port anywhere in it aborts the import with a
// *hoststore.ParseError and nothing is appended.
//
// With opts.SkipExisting set, a host whose name is already in the store, or
// appeared earlier in the same file, is not appended; its name is listed in
// ImportResult.Skipped in file order. Without it every parsed host is
// appended, which can leave duplicate names behind for doctor to report.
//
// Accepted hosts are written in one store.Append call, so the hosts file is
// rewritten once per import. defaultUser fills User for blocks that have no
// User directive.
func ImportFile(store *hoststore.Store, path, defaultUser string, opts ImportOptions) (ImportResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ImportResult{}, &MissingFileError{Path: path}
		}
		return ImportResult{}, err
	}

	parsed, err := ParseFile(path, defaultUser)
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	seen := map[string]bool{}
	for _, r := range parsed {
		if opts.SkipExisting {
			if _, exists := store.FindByName(r.Name); exists || seen[r.Name] {
				logger.Debug("import skipped existing host", "name", r.Name)
				res.Skipped = append(res.Skipped, r.Name)
				continue
			}
		}
		seen[r.Name] = true
		res.Records = append(res.Records, r)
	}

	if err := store.Append(res.Records...); err != nil {
		return ImportResult{}, fmt.Errorf("save imported hosts: %w", err)
	}
	res.Imported = len(res.Records)
	logger.Debug("ssh config imported", "path", path, "imported", res.Imported, "skipped", len(res.Skipped))
	return res, nil
}

// ParseFile reads the ssh config at path. See Parse.
func ParseFile(path, defaultUser string) ([]model.HostRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, path, defaultUser)
}

// Parse turns the Host blocks of an ssh config into records.
//
// Only the literal, case-sensitive directives "Host ", "HostName ", "User ",
// "Port " and "IdentityFile " are understood; every other line is ignored, as
// are directives before the first Host line. A new block starts with port 22
// and defaultUser. A Port value that is not an integer fails the whole parse.
func Parse(r io.Reader, source, defaultUser string) ([]model.HostRecord, error) {
	var (
		out     []model.HostRecord
		current model.HostRecord
		open    bool
	)
	finalize := func() {
		if open && current.Name != "" {
			out = append(out, current)
		}
	}

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := stripInlineComment(sc.Text())
		if line == "" {
			continue
		}

		if v, ok := directive(line, "Host"); ok {
			finalize()
			current = model.HostRecord{Name: v, User: defaultUser, Port: model.DefaultPort}
			open = true
			continue
		}
		if !open {
			continue
		}
		if v, ok := directive(line, "HostName"); ok {
			current.HostName = v
		} else if v, ok := directive(line, "User"); ok {
			current.User = v
		} else if v, ok := directive(line, "Port"); ok {
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, &hoststore.ParseError{Path: source, Line: lineNo, Field: "Port", Value: v, Err: errors.New("not an integer")}
			}
			current.Port = p
		} else if v, ok := directive(line, "IdentityFile"); ok {
			current.KeyPath = v
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", source, err)
	}
	finalize()
	return out, nil
}

// directive matches "<keyword> <value>" exactly (a single space after the
// keyword) and returns the trimmed value.
func directive(line, keyword string) (string, bool) {
	prefix := keyword + " "
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	return strings.TrimSpace(line[len(prefix):]), true
}

// stripInlineComment removes everything from the first unescaped '#' outside
// double quotes and trims surrounding blanks. A backslash-escaped "\#" is kept
// as a literal '#'.
func stripInlineComment(line string) string {
	var b strings.Builder
	inQuote := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line) && line[i+1] == '#':
			b.WriteByte('#')
			i++
			continue
		case c == '"':
			inQuote = !inQuote
		case c == '#' && !inQuote:
			return strings.Trim(b.String(), " \t")
		}
		b.WriteByte(c)
	}
	return strings.Trim(b.String(), " \t")
}

package hoststore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/treykane/sshman/internal/model"
)

const (
	fieldSep = "|"

	// minFields is name|hostname|username|port|key_path; tags may be absent.
	minFields = 5
)

var header = []string{
	"# SSH Manager Hosts Database",
	"# name|hostname|username|port|key_path|tags",
}

var errShortLine = errors.New("expected name|hostname|username|port|key_path[|tags]")

// Decode reads records from r in hosts file format. source names the input in
// parse errors. The first malformed line aborts the whole decode.
func Decode(r io.Reader, source string) ([]model.HostRecord, error) {
	var out []model.HostRecord
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Path = source
				pe.Line = lineNo
			}
			return nil, err
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", source, err)
	}
	return out, nil
}

func parseLine(line string) (model.HostRecord, error) {
	parts := strings.SplitN(line, fieldSep, minFields+1)
	if len(parts) < minFields {
		return model.HostRecord{}, &ParseError{Field: "line", Value: line, Err: errShortLine}
	}
	if parts[0] == "" {
		return model.HostRecord{}, &ParseError{Field: "name", Err: ErrEmptyName}
	}
	port, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return model.HostRecord{}, &ParseError{Field: "port", Value: parts[3], Err: numError(err)}
	}
	rec := model.HostRecord{
		Name:     parts[0],
		HostName: parts[1],
		User:     parts[2],
		Port:     port,
		KeyPath:  parts[4],
	}
	if len(parts) > minFields {
		rec.Tags = parts[5]
	}
	return rec, nil
}

// Encode writes the header followed by one line per record.
func Encode(w io.Writer, recs []model.HostRecord) error {
	bw := bufio.NewWriter(w)
	for _, h := range header {
		if _, err := fmt.Fprintln(bw, h); err != nil {
			return err
		}
	}
	for _, r := range recs {
		if _, err := bw.WriteString(formatLine(r) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatLine(r model.HostRecord) string {
	return strings.Join([]string{
		r.Name,
		r.HostName,
		r.User,
		strconv.Itoa(r.Port),
		r.KeyPath,
		r.Tags,
	}, fieldSep)
}

// Validate checks that rec can be stored and read back unchanged.
// Only tags, being the last field, may contain the separator.
func Validate(rec model.HostRecord) error {
	if strings.TrimSpace(rec.Name) == "" {
		return ErrEmptyName
	}
	fields := map[string]string{
		"name":     rec.Name,
		"hostname": rec.HostName,
		"user":     rec.User,
		"key path": rec.KeyPath,
	}
	for label, v := range fields {
		if strings.ContainsAny(v, fieldSep+"\r\n") {
			return fmt.Errorf("%w: %s must not contain '|' or line breaks", ErrInvalidRecord, label)
		}
	}
	if strings.ContainsAny(rec.Tags, "\r\n") {
		return fmt.Errorf("%w: tags must not contain line breaks", ErrInvalidRecord)
	}
	if strings.HasPrefix(rec.Name, "#") {
		return fmt.Errorf("%w: name must not start with '#'", ErrInvalidRecord)
	}
	return nil
}

// numError drops the strconv prefix so the message reads "invalid syntax".
func numError(err error) error {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err
	}
	return err
}

package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/treykane/sshman/internal/model"
	"github.com/treykane/sshman/internal/util"
)

// ErrCancelled is returned when the user abandons a prompt.
var ErrCancelled = errors.New("cancelled")

// HostForm collects a new record. defaults carries the user, port and key
// path to offer; taken reports whether a name already exists.
type HostForm func(defaults model.HostRecord, taken func(string) bool) (model.HostRecord, error)

// lineReader reads answers one line at a time.
type lineReader struct {
	r   *bufio.Reader
	out io.Writer
}

func newLineReader(in io.Reader, out io.Writer) *lineReader {
	return &lineReader{r: bufio.NewReader(in), out: out}
}

// ask prints prompt and returns the answer without its line ending.
// io.EOF is returned only when no input at all was left.
func (l *lineReader) ask(prompt string) (string, error) {
	fmt.Fprint(l.out, prompt)
	line, err := l.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// LineHostForm returns a HostForm that asks one question per line, for
// non-terminal input.
func LineHostForm(in io.Reader, out io.Writer) HostForm {
	return newLineReader(in, out).hostForm
}

func (l *lineReader) hostForm(defaults model.HostRecord, taken func(string) bool) (model.HostRecord, error) {
	rec := defaults

	name, err := l.ask("Name (alias): ")
	if err != nil {
		return rec, err
	}
	rec.Name = strings.TrimSpace(name)
	if err := validateName(rec.Name, taken); err != nil {
		return rec, err
	}

	host, err := l.ask("Hostname/IP: ")
	if err != nil {
		return rec, err
	}
	rec.HostName = strings.TrimSpace(host)
	if rec.HostName == "" {
		return rec, errors.New("hostname cannot be empty")
	}

	u, err := l.ask(fmt.Sprintf("Username [%s]: ", defaults.User))
	if err != nil {
		return rec, err
	}
	rec.User = util.DefaultString(strings.TrimSpace(u), defaults.User)

	p, err := l.ask(fmt.Sprintf("Port [%d]: ", defaults.Port))
	if err != nil {
		return rec, err
	}
	if rec.Port, err = util.ParsePort(p, defaults.Port); err != nil {
		return rec, err
	}

	k, err := l.ask(fmt.Sprintf("SSH key path [%s]: ", defaults.KeyPath))
	if err != nil {
		return rec, err
	}
	rec.KeyPath = util.DefaultString(strings.TrimSpace(k), defaults.KeyPath)

	tags, err := l.ask("Tags (comma separated): ")
	if err != nil {
		return rec, err
	}
	rec.Tags = strings.TrimSpace(tags)
	return rec, nil
}

func validateName(name string, taken func(string) bool) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if taken != nil && taken(name) {
		return fmt.Errorf("host already exists: %s", name)
	}
	return nil
}

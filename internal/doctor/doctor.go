// Package doctor runs local diagnostics over the host registry and the
// environment sshman depends on.
package doctor

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/treykane/sshman/internal/appconfig"
	"github.com/treykane/sshman/internal/hoststore"
	"github.com/treykane/sshman/internal/model"
	"github.com/treykane/sshman/internal/sshclient"
	"github.com/treykane/sshman/internal/util"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Issue struct {
	Severity       Severity `json:"severity"`
	Check          string   `json:"check"`
	Target         string   `json:"target"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

// HasHigh reports whether any issue is high severity.
func (r Report) HasHigh() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// Run executes local diagnostics for cfg and the hosts in store.
func Run(cfg appconfig.Config, store *hoststore.Store) Report {
	var issues []Issue

	if err := sshclient.EnsureBinary(cfg.Settings.SSHBinary); err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "ssh-binary",
			Target:         "PATH",
			Message:        err.Error(),
			Recommendation: "install the OpenSSH client or set ssh_binary in config.yaml",
		})
	}

	for _, name := range store.Duplicates() {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "duplicate-name",
			Target:         name,
			Message:        "host name is defined more than once",
			Recommendation: fmt.Sprintf("run `sshman delete %s` and add it again", name),
		})
	}

	checkPathPerm(&issues, cfg.Dir, 0o700, false)
	checkPathPerm(&issues, store.Path(), 0o600, true)

	seenKeys := map[string]struct{}{}
	for _, rec := range store.List() {
		issues = append(issues, recordIssues(rec)...)
		if rec.KeyPath == "" || rec.KeyPath == model.DefaultKeyPath {
			continue
		}
		key := appconfig.ExpandHome(rec.KeyPath)
		if _, ok := seenKeys[key]; ok {
			continue
		}
		seenKeys[key] = struct{}{}
		if _, err := os.Stat(key); os.IsNotExist(err) {
			issues = append(issues, Issue{
				Severity:       SeverityMedium,
				Check:          "missing-key",
				Target:         rec.Name,
				Message:        fmt.Sprintf("identity file %s does not exist", rec.KeyPath),
				Recommendation: "fix the key path or create the key with ssh-keygen",
			})
			continue
		}
		checkPathPerm(&issues, key, 0o600, true)
	}

	sort.Slice(issues, func(i, j int) bool {
		ri := severityRank(issues[i].Severity)
		rj := severityRank(issues[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if issues[i].Check != issues[j].Check {
			return issues[i].Check < issues[j].Check
		}
		if issues[i].Target != issues[j].Target {
			return issues[i].Target < issues[j].Target
		}
		return issues[i].Message < issues[j].Message
	})
	return Report{Issues: issues}
}

func recordIssues(rec model.HostRecord) []Issue {
	var issues []Issue
	if strings.TrimSpace(rec.HostName) == "" {
		issues = append(issues, Issue{
			Severity:       SeverityMedium,
			Check:          "empty-hostname",
			Target:         rec.Name,
			Message:        "host has no hostname",
			Recommendation: "delete and re-add the host with a hostname",
		})
	}
	if err := util.ValidatePort(rec.Port); err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityMedium,
			Check:          "invalid-port",
			Target:         rec.Name,
			Message:        err.Error(),
			Recommendation: "edit the hosts file and set a port between 1 and 65535",
		})
	}
	if strings.TrimSpace(rec.User) == "" {
		issues = append(issues, Issue{
			Severity:       SeverityLow,
			Check:          "empty-user",
			Target:         rec.Name,
			Message:        "host has no user; ssh will use the local account name",
			Recommendation: "set a user if the remote account differs",
		})
	}
	return issues
}

func checkPathPerm(issues *[]Issue, path string, max os.FileMode, isFile bool) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		*issues = append(*issues, Issue{
			Severity:       SeverityLow,
			Check:          "permissions",
			Target:         path,
			Message:        fmt.Sprintf("unable to inspect permissions: %v", err),
			Recommendation: "verify path and permissions manually",
		})
		return
	}
	mode := st.Mode().Perm()
	if mode&^max != 0 {
		kind := "directory"
		if isFile {
			kind = "file"
		}
		*issues = append(*issues, Issue{
			Severity:       SeverityMedium,
			Check:          "permissions",
			Target:         path,
			Message:        fmt.Sprintf("%s permissions are too broad (%#o)", kind, mode),
			Recommendation: fmt.Sprintf("restrict permissions to %#o or tighter", max),
		})
	}
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

package model

import "strings"

const (
	// DefaultPort is the ssh port that is never passed explicitly.
	DefaultPort = 22
	// DefaultKeyPath is the conventional identity that ssh picks up on its own.
	DefaultKeyPath = "~/.ssh/id_rsa"
)

// HostRecord is one named ssh connection profile kept in the hosts file.
type HostRecord struct {
	Name     string `json:"name"`
	HostName string `json:"host_name"`
	User     string `json:"user,omitempty"`
	Port     int    `json:"port"`
	KeyPath  string `json:"key_path,omitempty"`
	Tags     string `json:"tags,omitempty"`
}

// NewHostRecord returns a record with the default port and key path filled in.
func NewHostRecord(name, hostname, user string) HostRecord {
	return HostRecord{
		Name:     name,
		HostName: hostname,
		User:     user,
		Port:     DefaultPort,
		KeyPath:  DefaultKeyPath,
	}
}

// Target returns the ssh destination, user@hostname or just hostname.
func (h HostRecord) Target() string {
	if h.User == "" {
		return h.HostName
	}
	return h.User + "@" + h.HostName
}

func (h HostRecord) DisplayTarget() string {
	if h.HostName != "" {
		return h.HostName
	}
	return h.Name
}

// TagList splits the comma separated tags, dropping blanks.
func (h HostRecord) TagList() []string {
	var out []string
	for _, t := range strings.Split(h.Tags, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// HasTag reports whether tag is one of the record's tags (case-insensitive).
func (h HostRecord) HasTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, t := range h.TagList() {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

package shell

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/treykane/sshman/internal/model"
	"github.com/treykane/sshman/internal/util"
)

// HuhHostForm asks for a new record with a huh form. It needs a terminal.
func HuhHostForm(defaults model.HostRecord, taken func(string) bool) (model.HostRecord, error) {
	var (
		name, hostname, tags string
		user                 = defaults.User
		port                 = strconv.Itoa(defaults.Port)
		key                  = defaults.KeyPath
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name (alias)").
				Value(&name).
				Validate(func(s string) error { return validateName(strings.TrimSpace(s), taken) }),
			huh.NewInput().
				Title("Hostname/IP").
				Value(&hostname).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("hostname cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Username").
				Value(&user),
			huh.NewInput().
				Title("Port").
				Value(&port).
				Validate(func(s string) error {
					_, err := util.ParsePort(s, defaults.Port)
					return err
				}),
			huh.NewInput().
				Title("SSH key path").
				Value(&key),
			huh.NewInput().
				Title("Tags (comma separated)").
				Value(&tags),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return model.HostRecord{}, ErrCancelled
		}
		return model.HostRecord{}, err
	}

	p, err := util.ParsePort(port, defaults.Port)
	if err != nil {
		return model.HostRecord{}, err
	}
	return model.HostRecord{
		Name:     strings.TrimSpace(name),
		HostName: strings.TrimSpace(hostname),
		User:     util.DefaultString(strings.TrimSpace(user), defaults.User),
		Port:     p,
		KeyPath:  util.DefaultString(strings.TrimSpace(key), defaults.KeyPath),
		Tags:     strings.TrimSpace(tags),
	}, nil
}

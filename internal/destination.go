package internal

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
)

const defaultSSHPort = 22

var destinationPattern = regexp.MustCompile(`^(?:(?P<user>[^@]+)@)?(?P<host>.+)$`)

// HostSettings looks up ssh_config keywords for a host alias.
// *ssh_config.UserSettings satisfies it.
type HostSettings interface {
	Get(alias, key string) string
	GetAll(alias, key string) []string
}

// Destination is a resolved remote endpoint.
type Destination struct {
	User  string
	Alias string // host as written by the operator
	Host  string // host to dial, after HostName resolution
	Port  int
	// IdentityFiles comes from ssh_config for this alias.
	IdentityFiles []string
}

func (d Destination) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

func (d Destination) String() string {
	return fmt.Sprintf("%s@%s", d.User, d.Addr())
}

// ParseDestination parses [user@]host[:port]. Fields the operator leaves out
// come from settings, then defaultPort, then $USER and port 22.
func ParseDestination(raw string, settings HostSettings, defaultPort int) (Destination, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Destination{}, fmt.Errorf("%w: no destination given", ErrDestinationInvalid)
	}

	m := destinationPattern.FindStringSubmatch(raw)
	if m == nil {
		return Destination{}, fmt.Errorf("%w: %q", ErrDestinationInvalid, raw)
	}
	user := m[destinationPattern.SubexpIndex("user")]
	host := m[destinationPattern.SubexpIndex("host")]

	host, port, err := splitPort(host)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: %q: %v", ErrDestinationInvalid, raw, err)
	}
	if host == "" || strings.ContainsAny(host, "@/ ") {
		return Destination{}, fmt.Errorf("%w: %q has no usable host", ErrDestinationInvalid, raw)
	}

	d := Destination{User: user, Alias: host, Host: host, Port: port}

	if settings != nil {
		if hn := settings.Get(host, "HostName"); hn != "" {
			d.Host = hn
		}
		if d.User == "" {
			d.User = settings.Get(host, "User")
		}
		if d.Port == 0 && defaultPort == 0 {
			if p, err := strconv.Atoi(settings.Get(host, "Port")); err == nil && p > 0 {
				d.Port = p
			}
		}
		for _, f := range settings.GetAll(host, "IdentityFile") {
			if f != "" {
				d.IdentityFiles = append(d.IdentityFiles, ExpandHome(f))
			}
		}
	}

	if d.Port == 0 {
		d.Port = defaultPort
	}
	if d.Port == 0 {
		d.Port = defaultSSHPort
	}
	if d.User == "" {
		d.User = os.Getenv("USER")
	}
	if d.User == "" {
		return Destination{}, fmt.Errorf("%w: %q has no user and $USER is unset", ErrDestinationInvalid, raw)
	}

	return d, nil
}

func splitPort(host string) (string, int, error) {
	switch {
	case strings.HasPrefix(host, "["):
		h, p, err := net.SplitHostPort(host)
		if err != nil {
			return strings.Trim(host, "[]"), 0, nil
		}
		port, err := parsePort(p)
		return h, port, err
	case strings.Count(host, ":") == 1:
		h, p, _ := strings.Cut(host, ":")
		port, err := parsePort(p)
		return h, port, err
	default:
		return host, 0, nil
	}
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return port, nil
}

package ipcchan

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	schemeTCP    = "tcp"
	schemeInproc = "inproc"
)

// addr is a parsed endpoint address of the form scheme://target, e.g.
// "tcp://127.0.0.1:10001", "tcp://*:10001" or "inproc://worker".
type addr struct {
	scheme string
	target string
}

func parseAddr(s string) (addr, error) {
	i := strings.Index(s, "://")
	if i < 0 {
		return addr{}, errors.Errorf("malformed address %q", s)
	}

	a := addr{scheme: s[:i], target: s[i+3:]}

	switch a.scheme {
	case schemeTCP:
		// "*" binds the wildcard host.
		if strings.HasPrefix(a.target, "*:") {
			a.target = a.target[1:]
		}
	case schemeInproc:
		if a.target == "" {
			return addr{}, errors.Errorf("empty inproc name in %q", s)
		}
	default:
		return addr{}, errors.Errorf("unknown scheme in address %q", s)
	}

	return a, nil
}

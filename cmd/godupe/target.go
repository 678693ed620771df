package main

import (
	"fmt"
	"os"
	"strings"
)

type scanTarget struct {
	Remote         bool
	LocalPath      string
	SSHDestination string
	RemotePath     string
}

// resolveScanTarget interprets the positional arguments. An existing local
// path always wins over a user@host reading of the same string.
func resolveScanTarget(args []string) (scanTarget, error) {
	if len(args) == 0 {
		return scanTarget{LocalPath: "."}, nil
	}

	first := args[0]
	if pathExists(first) {
		if len(args) > 1 {
			return scanTarget{}, fmt.Errorf("too many positional arguments for local scan")
		}
		return scanTarget{LocalPath: first}, nil
	}

	if isRemote, err := validateRemoteTarget(first); isRemote {
		if err != nil {
			return scanTarget{}, err
		}
		if len(args) > 2 {
			return scanTarget{}, fmt.Errorf("too many positional arguments for remote scan")
		}

		remotePath := "."
		if len(args) == 2 && strings.TrimSpace(args[1]) != "" {
			remotePath = args[1]
		}
		return scanTarget{Remote: true, SSHDestination: first, RemotePath: remotePath}, nil
	}

	if len(args) > 1 {
		return scanTarget{}, fmt.Errorf("too many positional arguments")
	}
	// A missing local path is reported by the scanner as an invalid root.
	return scanTarget{LocalPath: first}, nil
}

// validateRemoteTarget reports whether raw looks like user@host and, if so,
// whether it is well formed.
func validateRemoteTarget(raw string) (bool, error) {
	if strings.ContainsAny(raw, `/\`) {
		return false, nil
	}
	if strings.Count(raw, "@") != 1 {
		return false, nil
	}

	user, host, _ := strings.Cut(raw, "@")
	if user == "" || host == "" {
		return true, fmt.Errorf("invalid remote target %q: expected user@host", raw)
	}
	if strings.HasPrefix(user, "-") || strings.HasPrefix(host, "-") {
		return true, fmt.Errorf("invalid remote target %q", raw)
	}
	if strings.ContainsAny(user, " \t\n\r") || strings.ContainsAny(host, " \t\n\r") {
		return true, fmt.Errorf("invalid remote target %q: spaces are not allowed", raw)
	}

	if strings.HasPrefix(host, "[") {
		end := strings.Index(host, "]")
		switch {
		case end == -1:
			return true, fmt.Errorf("invalid remote target %q: malformed bracketed host", raw)
		case end == 1:
			return true, fmt.Errorf("invalid remote target %q: empty host", raw)
		case end != len(host)-1:
			rest := host[end+1:]
			if strings.HasPrefix(rest, ":") && isAllDigits(rest[1:]) {
				return true, fmt.Errorf("remote target %q must not include :port; use --ssh-port", raw)
			}
			return true, fmt.Errorf("invalid remote target %q: malformed bracketed host", raw)
		}
	} else if strings.Contains(host, "]") {
		return true, fmt.Errorf("invalid remote target %q: malformed bracketed host", raw)
	}

	if looksLikeHostPort(host) {
		return true, fmt.Errorf("remote target %q must not include :port; use --ssh-port", raw)
	}
	return true, nil
}

func looksLikeHostPort(host string) bool {
	if strings.Count(host, ":") != 1 {
		return false
	}
	_, port, _ := strings.Cut(host, ":")
	return isAllDigits(port)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

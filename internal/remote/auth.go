package remote

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

var defaultPrivateKeyFiles = []string{
	"id_ed25519",
	"id_ecdsa",
	"id_rsa",
}

func parseSSHTarget(target string) (user, host string, err error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", "", fmt.Errorf("remote target is required")
	}
	user, host, ok := strings.Cut(target, "@")
	if !ok || user == "" || host == "" {
		return "", "", fmt.Errorf("invalid remote target %q: expected user@host", target)
	}
	return user, host, nil
}

// hostKeyVerifier checks server keys against a known_hosts file. Unknown
// hosts are trusted on first use and changed keys replaced only after an
// interactive yes. In batch mode both cases fail.
type hostKeyVerifier struct {
	path   string
	host   string
	port   int
	batch  bool
	prompt func(question string) (bool, error)
	log    *logrus.Entry
}

func (v *hostKeyVerifier) callback() (ssh.HostKeyCallback, error) {
	if err := ensureFile(v.path); err != nil {
		return nil, err
	}
	verify, err := knownhosts.New(v.path)
	if err != nil {
		return nil, fmt.Errorf("cannot load known_hosts: %w", err)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := verify(hostname, remote, key)
		if err == nil {
			return nil
		}
		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) {
			return fmt.Errorf("host key verification failed: %w", err)
		}
		if len(keyErr.Want) == 0 {
			return v.trustNew(key)
		}
		return v.replaceChanged(key, keyErr.Want)
	}, nil
}

func (v *hostKeyVerifier) address() string {
	return knownHostAddress(v.host, v.port)
}

func (v *hostKeyVerifier) trustNew(key ssh.PublicKey) error {
	fingerprint := ssh.FingerprintSHA256(key)
	if v.batch {
		return fmt.Errorf("unknown host key for %s (%s); run ssh once to trust it or disable --ssh-batch", v.address(), fingerprint)
	}
	ok, err := v.prompt(fmt.Sprintf(
		"The authenticity of host '%s' can't be established.\n%s key fingerprint is %s.\nTrust this host and continue connecting (yes/no)? ",
		v.address(), key.Type(), fingerprint,
	))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("host key for %s was not trusted", v.address())
	}
	if err := appendKnownHost(v.path, v.address(), key); err != nil {
		return err
	}
	v.log.WithField("fingerprint", fingerprint).Info("added host to known_hosts")
	return nil
}

func (v *hostKeyVerifier) replaceChanged(key ssh.PublicKey, want []knownhosts.KnownKey) error {
	expected := make([]string, 0, len(want))
	for _, w := range want {
		expected = append(expected, ssh.FingerprintSHA256(w.Key))
	}
	presented := ssh.FingerprintSHA256(key)

	if v.batch {
		return fmt.Errorf("host key mismatch for %s: expected %s, presented %s",
			v.address(), strings.Join(expected, ", "), presented)
	}
	ok, err := v.prompt(fmt.Sprintf(
		"WARNING: HOST KEY CHANGED for '%s'.\nExpected: %s\nPresented: %s\nReplace stored key and continue (yes/no)? ",
		v.address(), strings.Join(expected, ", "), presented,
	))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("host key mismatch for %s", v.address())
	}

	data, err := os.ReadFile(v.path)
	if err != nil {
		return fmt.Errorf("cannot read known_hosts: %w", err)
	}
	updated := removeKnownHostEntries(data, v.host, v.port)
	if len(updated) > 0 && updated[len(updated)-1] != '\n' {
		updated = append(updated, '\n')
	}
	updated = append(updated, knownhosts.Line([]string{v.address()}, key)...)
	updated = append(updated, '\n')
	if err := os.WriteFile(v.path, updated, 0o600); err != nil {
		return fmt.Errorf("cannot write known_hosts: %w", err)
	}
	v.log.WithField("fingerprint", presented).Warn("replaced changed host key")
	return nil
}

func defaultKnownHostsFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for known_hosts: %w", err)
	}
	return filepath.Join(home, ".ssh", "known_hosts"), nil
}

func ensureFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return fmt.Errorf("cannot access known_hosts: %w", err)
	}
	return f.Close()
}

func knownHostAddress(host string, port int) string {
	if port == 22 {
		return host
	}
	return fmt.Sprintf("[%s]:%d", host, port)
}

func appendKnownHost(path, address string, key ssh.PublicKey) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("cannot update known_hosts: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(knownhosts.Line([]string{address}, key) + "\n"); err != nil {
		return fmt.Errorf("cannot write known_hosts entry: %w", err)
	}
	return nil
}

// removeKnownHostEntries drops lines naming host:port, keeping comments and
// entries for other hosts or ports. Port 22 also matches the bare host name.
func removeKnownHostEntries(data []byte, host string, port int) []byte {
	names := map[string]bool{fmt.Sprintf("[%s]:%d", host, port): true}
	if port == 22 {
		names[host] = true
	}

	lines := strings.Split(string(data), "\n")
	keep := lines[:0]
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			keep = append(keep, line)
			continue
		}
		hosts := fields[0]
		if strings.HasPrefix(hosts, "@") {
			if len(fields) < 2 {
				keep = append(keep, line)
				continue
			}
			hosts = fields[1]
		}
		if !matchesAny(hosts, names) {
			keep = append(keep, line)
		}
	}
	return []byte(strings.Join(keep, "\n"))
}

func matchesAny(hostField string, names map[string]bool) bool {
	for _, h := range strings.Split(hostField, ",") {
		if names[h] {
			return true
		}
	}
	return false
}

func promptYesNo(question string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("cannot prompt for host key trust: stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, question)
	return readYesNo(os.Stdin)
}

func readYesNo(r io.Reader) (bool, error) {
	answer, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("host key prompt failed: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func buildAuthMethods(user, host string, batchMode bool, log *logrus.Entry) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if sock := strings.TrimSpace(os.Getenv("SSH_AUTH_SOCK")); sock != "" {
		methods = append(methods, ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			conn, err := net.Dial("unix", sock)
			if err != nil {
				return nil, err
			}
			defer conn.Close()
			return agent.NewClient(conn).Signers()
		}))
	}

	if home, err := os.UserHomeDir(); err == nil {
		if signers := loadKeySigners(filepath.Join(home, ".ssh"), log); len(signers) > 0 {
			methods = append(methods, ssh.PublicKeys(signers...))
		}
	}

	if !batchMode {
		p := &passwordPrompter{user: user, host: host}
		methods = append(methods, ssh.PasswordCallback(p.password), ssh.KeyboardInteractive(p.keyboardInteractive))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH auth methods available (configure ssh-agent or private keys, or disable --ssh-batch)")
	}
	return methods, nil
}

// loadKeySigners parses unencrypted default keys in dir. Encrypted keys are
// left to the agent.
func loadKeySigners(dir string, log *logrus.Entry) []ssh.Signer {
	var signers []ssh.Signer
	for _, name := range defaultPrivateKeyFiles {
		path := filepath.Join(dir, name)
		pem, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			log.WithField("key", path).WithError(err).Debug("skipping private key")
			continue
		}
		signers = append(signers, signer)
	}
	return signers
}

type passwordPrompter struct {
	user string
	host string

	once sync.Once
	pass string
	err  error
}

func (p *passwordPrompter) password() (string, error) {
	p.once.Do(func() {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			p.err = fmt.Errorf("cannot prompt for SSH password: stdin is not a terminal")
			return
		}
		fmt.Fprintf(os.Stderr, "%s@%s's password: ", p.user, p.host)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			p.err = fmt.Errorf("password prompt failed: %w", err)
			return
		}
		p.pass = string(b)
	})
	return p.pass, p.err
}

func (p *passwordPrompter) keyboardInteractive(_, _ string, questions []string, echos []bool) ([]string, error) {
	answers := make([]string, len(questions))
	if len(questions) == 0 {
		return answers, nil
	}
	pass, err := p.password()
	if err != nil {
		return nil, err
	}
	for i := range questions {
		if i < len(echos) && echos[i] {
			continue
		}
		answers[i] = pass
	}
	return answers, nil
}

package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	pathpkg "path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/sadopc/godupe/internal/logging"
	"github.com/sadopc/godupe/internal/model"
	"github.com/sadopc/godupe/internal/scanner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh"
)

const defaultRemotePath = "."

// Config configures a remote SFTP scan.
type Config struct {
	Target      string
	Port        int
	BatchMode   bool
	Timeout     time.Duration
	ScanTimeout time.Duration
	// KnownHostsFile overrides ~/.ssh/known_hosts.
	KnownHostsFile string
	Logger         *logrus.Entry
}

func (c Config) logger() *logrus.Entry {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.Discard()
}

// SFTPScanner finds duplicates on a remote host over the SFTP subsystem.
// File contents are streamed through the digester; nothing is copied locally.
type SFTPScanner struct {
	cfg  Config
	dial func(context.Context, Config) (afero.Fs, io.Closer, error)
}

var _ scanner.Scanner = (*SFTPScanner)(nil)

var dialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}

var sshNewClientConn = func(conn net.Conn, addr string, config *ssh.ClientConfig) (ssh.Conn, <-chan ssh.NewChannel, <-chan *ssh.Request, error) {
	return ssh.NewClientConn(conn, addr, config)
}

// NewSFTPScanner creates a new remote scanner.
func NewSFTPScanner(cfg Config) *SFTPScanner {
	return &SFTPScanner{cfg: cfg, dial: dialSFTP}
}

// Scan connects to the host and scans remotePath. The connection is closed
// before Scan returns.
func (s *SFTPScanner) Scan(ctx context.Context, remotePath string, opts scanner.ScanOptions, progress chan<- scanner.Progress) (*model.Report, error) {
	if s == nil {
		return nil, fmt.Errorf("remote scanner is nil")
	}
	if s.dial == nil {
		s.dial = dialSFTP
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if s.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ScanTimeout)
		defer cancel()
	}

	fs, closer, err := s.dial(ctx, s.cfg)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	rootPath := cleanRemotePath(remotePath)
	if rp, ok := fs.(interface{ RealPath(string) (string, error) }); ok {
		if resolved, err := rp.RealPath(rootPath); err == nil {
			rootPath = cleanRemotePath(resolved)
		}
	}
	s.cfg.logger().WithField("target", s.cfg.Target).WithField("root", rootPath).Info("scanning remote tree")

	return scanner.NewFsScanner(fs).Scan(ctx, rootPath, opts, progress)
}

func cleanRemotePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return defaultRemotePath
	}
	return pathpkg.Clean(strings.ReplaceAll(p, "\\", "/"))
}

func dialSFTP(ctx context.Context, cfg Config) (afero.Fs, io.Closer, error) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, nil, fmt.Errorf("ssh port must be between 1 and 65535")
	}

	user, host, err := parseSSHTarget(cfg.Target)
	if err != nil {
		return nil, nil, err
	}
	log := cfg.logger().WithField("host", host).WithField("port", cfg.Port)

	knownHosts := cfg.KnownHostsFile
	if knownHosts == "" {
		if knownHosts, err = defaultKnownHostsFile(); err != nil {
			return nil, nil, err
		}
	}
	verifier := &hostKeyVerifier{
		path:   knownHosts,
		host:   host,
		port:   cfg.Port,
		batch:  cfg.BatchMode,
		prompt: promptYesNo,
		log:    log,
	}
	hostCB, err := verifier.callback()
	if err != nil {
		return nil, nil, err
	}

	auth, err := buildAuthMethods(user, host, cfg.BatchMode, log)
	if err != nil {
		return nil, nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sshConfig := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostCB,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", cfg.Port))
	sshClient, err := connectSSH(dialCtx, addr, sshConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("SSH connection failed: %w", err)
	}
	log.Debug("ssh session established")

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, fmt.Errorf("cannot start SFTP subsystem: %w", err)
	}

	return newSFTPFs(client), &remoteCloser{ssh: sshClient, sftp: client}, nil
}

func connectSSH(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	conn, err := dialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// Closing the conn is the only way to interrupt the handshake.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	c, chans, reqs, err := sshNewClientConn(conn, addr, config)
	close(done)
	if err != nil {
		_ = conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

type remoteCloser struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (c *remoteCloser) Close() error {
	var retErr error
	if c.sftp != nil {
		if err := c.sftp.Close(); err != nil {
			retErr = err
		}
	}
	if c.ssh != nil {
		if err := c.ssh.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}
	return retErr
}

package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"time"

	scp "github.com/bramvdbogaerde/go-scp"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"github.com/skeema/knownhosts"
	sshagent "github.com/xanzy/ssh-agent"
	"golang.org/x/crypto/ssh"
)

// DefaultKeyFiles are tried under ~/.ssh when the agent cannot authenticate.
var DefaultKeyFiles = []string{"id_ed25519", "id_rsa", "id_ecdsa", "id_dsa"}

const dialTimeout = 15 * time.Second

// Transport copies single files to a remote host.
type Transport interface {
	Upload(ctx context.Context, remote string, mode fs.FileMode, size int64, body io.Reader) error
	Close() error
}

// Dialer opens a Transport to a destination.
type Dialer interface {
	Dial(ctx context.Context, dst Destination) (Transport, error)
}

// PasswordPrompt asks the operator for a password.
type PasswordPrompt func(prompt string) (string, error)

// TerminalPassword reads a password from the controlling terminal without echo.
func TerminalPassword(in *os.File, out io.Writer) PasswordPrompt {
	return func(prompt string) (string, error) {
		if !term.IsTerminal(in.Fd()) {
			return "", errors.New("password required but stdin is not a terminal")
		}
		fmt.Fprint(out, prompt)
		pass, err := term.ReadPassword(in.Fd())
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pass), nil
	}
}

// SSHDialer connects with the agent, then key files, then a password prompt.
type SSHDialer struct {
	config SSHConfig
	prompt PasswordPrompt
	logger *log.Logger
}

func NewSSHDialer(config SSHConfig, prompt PasswordPrompt, logger *log.Logger) *SSHDialer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SSHDialer{config: config, prompt: prompt, logger: logger}
}

func (d *SSHDialer) Dial(ctx context.Context, dst Destination) (Transport, error) {
	cfg, closeAgent, err := d.clientConfig(dst)
	if err != nil {
		return nil, err
	}
	defer closeAgent()

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", dst.Addr())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dst.Addr(), err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, dst.Addr(), cfg)
	if err != nil {
		conn.Close()
		if knownhosts.IsHostUnknown(err) {
			return nil, fmt.Errorf("ssh handshake with %s: host key not in known_hosts: %w", dst.Addr(), err)
		}
		return nil, fmt.Errorf("ssh handshake with %s: %w", dst.Addr(), err)
	}
	d.logger.Info("connected", "destination", dst.String())

	client := ssh.NewClient(c, chans, reqs)
	transport, err := NewSCPTransport(client, d.logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	return transport, nil
}

func (d *SSHDialer) clientConfig(dst Destination) (*ssh.ClientConfig, func(), error) {
	cfg := &ssh.ClientConfig{
		User:    dst.User,
		Timeout: dialTimeout,
	}

	if d.config.InsecureIgnoreHostKey {
		d.logger.Warn("host key verification disabled", "host", dst.Host)
		cfg.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		files := d.knownHostsFiles()
		kh, err := knownhosts.New(files...)
		if err != nil {
			return nil, nil, fmt.Errorf("load known_hosts: %w", err)
		}
		cfg.HostKeyCallback = kh.HostKeyCallback()
		cfg.HostKeyAlgorithms = kh.HostKeyAlgorithms(dst.Addr())
	}

	methods, closeAgent := d.authMethods(dst)
	cfg.Auth = methods
	return cfg, closeAgent, nil
}

func (d *SSHDialer) knownHostsFiles() []string {
	var files []string
	for _, f := range d.config.KnownHosts {
		files = append(files, ExpandHome(f))
	}
	if len(files) == 0 {
		files = append(files, ExpandHome("~/.ssh/known_hosts"))
	}

	existing := files[:0]
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	return existing
}

func (d *SSHDialer) authMethods(dst Destination) ([]ssh.AuthMethod, func()) {
	var methods []ssh.AuthMethod
	closeAgent := func() {}

	if ag, conn, err := sshagent.New(); err == nil {
		methods = append(methods, ssh.PublicKeysCallback(ag.Signers))
		if conn != nil {
			closeAgent = func() { conn.Close() }
		}
	} else {
		d.logger.Debug("ssh agent unavailable", "err", err)
	}

	if signers := d.keyFileSigners(dst); len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if d.prompt != nil {
		msg := fmt.Sprintf("%s@%s's password: ", dst.User, dst.Host)
		methods = append(methods, ssh.PasswordCallback(func() (string, error) {
			return d.prompt(msg)
		}))
	}

	return methods, closeAgent
}

func (d *SSHDialer) keyFileSigners(dst Destination) []ssh.Signer {
	var candidates []string
	for _, f := range d.config.IdentityFiles {
		candidates = append(candidates, ExpandHome(f))
	}
	candidates = append(candidates, dst.IdentityFiles...)
	for _, name := range DefaultKeyFiles {
		candidates = append(candidates, ExpandHome(filepath.Join("~/.ssh", name)))
	}

	seen := make(map[string]bool)
	var signers []ssh.Signer
	for _, f := range candidates {
		if seen[f] {
			continue
		}
		seen[f] = true

		data, err := os.ReadFile(f)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			var missing *ssh.PassphraseMissingError
			if errors.As(err, &missing) {
				d.logger.Debug("skipping encrypted key, load it into the agent", "file", f)
			} else {
				d.logger.Debug("skipping unreadable key", "file", f, "err", err)
			}
			continue
		}
		signers = append(signers, signer)
	}
	return signers
}

// SCPTransport uploads over an ssh client, one scp session per file.
type SCPTransport struct {
	client *ssh.Client
	scp    scp.Client
	logger *log.Logger
}

func NewSCPTransport(client *ssh.Client, logger *log.Logger) (*SCPTransport, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	sc, err := scp.NewClientBySSH(client)
	if err != nil {
		return nil, fmt.Errorf("scp client: %w", err)
	}
	return &SCPTransport{client: client, scp: sc, logger: logger}, nil
}

// Upload sends body as remote carrying the permission bits of mode.
func (t *SCPTransport) Upload(ctx context.Context, remote string, mode fs.FileMode, size int64, body io.Reader) error {
	perm := fmt.Sprintf("%04o", mode.Perm())
	if err := t.scp.Copy(ctx, io.LimitReader(body, size), remote, perm, size); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("scp %s: %w", remote, err)
	}
	t.logger.Debug("uploaded", "remote", remote, "mode", perm, "bytes", size)
	return nil
}

// Close ends the ssh connection shared by all uploads.
func (t *SCPTransport) Close() error {
	return t.client.Close()
}

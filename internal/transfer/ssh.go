package transfer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig describes how to reach the serving host.
type SSHConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyFile  string
	// KnownHosts defaults to ~/.ssh/known_hosts.
	KnownHosts string
	// Insecure accepts any host key.
	Insecure bool
	// BaseDir is the remote directory uploads are relative to.
	BaseDir string
	Timeout time.Duration
}

// SSHTarget copies files with the scp protocol over an SSH connection.
type SSHTarget struct {
	client  *ssh.Client
	baseDir string
	made    map[string]bool
}

// DialSSH opens a connection described by cfg.
func DialSSH(ctx context.Context, cfg SSHConfig) (*SSHTarget, error) {
	if cfg.Host == "" || cfg.User == "" {
		return nil, errors.New("transfer host and user are required")
	}
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}
	hostKeys, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}

	return &SSHTarget{
		client:  ssh.NewClient(c, chans, reqs),
		baseDir: cfg.BaseDir,
		made:    map[string]bool{},
	}, nil
}

func authMethods(cfg SSHConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.KeyFile != "" {
		pem, err := os.ReadFile(expandHome(cfg.KeyFile))
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parse key file: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}
	if len(methods) == 0 {
		return nil, errors.New("no transfer credentials: set a password or key file")
	}
	return methods, nil
}

func hostKeyCallback(cfg SSHConfig) (ssh.HostKeyCallback, error) {
	if cfg.Insecure {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	file := cfg.KnownHosts
	if file == "" {
		file = "~/.ssh/known_hosts"
	}
	cb, err := knownhosts.New(expandHome(file))
	if err != nil {
		return nil, fmt.Errorf("load known hosts: %w", err)
	}
	return cb, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Put uploads local to remote below the target's base directory, creating
// remote directories first.
func (t *SSHTarget) Put(ctx context.Context, local, remote string) error {
	full := path.Clean(path.Join(t.baseDir, remote))
	if dir := path.Dir(full); !t.made[dir] {
		if err := t.run(ctx, "mkdir -p "+shellQuote(dir)); err != nil {
			return fmt.Errorf("create remote dir %s: %w", dir, err)
		}
		t.made[dir] = true
	}

	f, err := os.Open(local)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	sess, err := t.client.NewSession()
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()
	stop := closeOnDone(ctx, sess)
	defer stop()

	stdin, err := sess.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		return err
	}
	if err := sess.Start("scp -qt " + shellQuote(full)); err != nil {
		return fmt.Errorf("start scp: %w", err)
	}

	sendErr := scpSend(stdin, bufio.NewReader(stdout), path.Base(full), info.Size(), f)
	stdin.Close()
	waitErr := sess.Wait()
	if sendErr != nil {
		return sendErr
	}
	if waitErr != nil {
		return fmt.Errorf("scp: %w", waitErr)
	}
	return nil
}

func (t *SSHTarget) run(ctx context.Context, cmd string) error {
	sess, err := t.client.NewSession()
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()
	stop := closeOnDone(ctx, sess)
	defer stop()

	out, err := sess.CombinedOutput(cmd)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

func (t *SSHTarget) Close() error {
	return t.client.Close()
}

// closeOnDone closes sess when ctx ends before the returned stop is called.
func closeOnDone(ctx context.Context, sess *ssh.Session) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			sess.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// scpSend speaks the sink side of the scp protocol for a single file: wait
// for the remote ready byte, send the C record, the content and a trailing
// zero byte, checking the acknowledgement after each step.
func scpSend(w io.Writer, r *bufio.Reader, name string, size int64, body io.Reader) error {
	if err := readAck(r); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "C0644 %d %s\n", size, name); err != nil {
		return fmt.Errorf("send header: %w", err)
	}
	if err := readAck(r); err != nil {
		return err
	}
	n, err := io.Copy(w, body)
	if err != nil {
		return fmt.Errorf("send content: %w", err)
	}
	if n != size {
		return fmt.Errorf("sent %d bytes, expected %d", n, size)
	}
	if _, err := w.Write([]byte{0}); err != nil {
		return fmt.Errorf("send terminator: %w", err)
	}
	return readAck(r)
}

func readAck(r *bufio.Reader) error {
	code, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("read scp ack: %w", err)
	}
	if code == 0 {
		return nil
	}
	msg, _ := r.ReadString('\n')
	msg = strings.TrimSpace(msg)
	if code == 1 {
		return fmt.Errorf("scp warning: %s", msg)
	}
	return fmt.Errorf("scp error: %s", msg)
}

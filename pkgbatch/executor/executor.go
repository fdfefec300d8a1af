// Package executor runs rendered batch scripts on the target host, locally
// or over SSH. It is the execution collaborator: compilation never touches
// it, and it never inspects what it runs.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/pkgbatchops/pkgbatch/pkgbatch/scripttree"
)

// Credentials carries the SSH and sudo secrets for one host.
type Credentials struct {
	User          string
	Password      string
	KeyPassphrase string
	SudoPassword  string
}

// Result captures one script run.
type Result struct {
	STDOUT    string
	STDERR    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// Runner executes a rendered script on a host.
type Runner interface {
	Run(ctx context.Context, script string) (Result, error)
}

// SSHDialer is the dial seam, swappable in tests.
type SSHDialer interface {
	Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error)
}

type realDialer struct{}

func (realDialer) Dial(network, addr string, config *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	config.Timeout = timeout
	return ssh.Dial(network, addr, config)
}

// ScriptRunner runs scripts through /bin/sh, with sudo when requested.
// "localhost" and "127.0.0.1" run in-process via exec; everything else goes
// over SSH.
type ScriptRunner struct {
	Hostname string
	Sudo     bool
	Dialer   SSHDialer
	Credentials
}

func NewScriptRunner(hostname string, creds Credentials, sudo bool) *ScriptRunner {
	return &ScriptRunner{
		Hostname:    hostname,
		Sudo:        sudo,
		Dialer:      realDialer{},
		Credentials: creds,
	}
}

func (r *ScriptRunner) Run(ctx context.Context, script string) (Result, error) {
	if r.isLocal() {
		slog.Debug("running script locally", "hostname", r.Hostname)
		return r.runLocal(ctx, script)
	}
	slog.Debug("running script over ssh", "hostname", r.Hostname)
	return r.runRemote(ctx, script)
}

func (r *ScriptRunner) runLocal(ctx context.Context, script string) (Result, error) {
	start := time.Now()

	var cmd *exec.Cmd
	if r.Sudo {
		cmd = exec.CommandContext(ctx, "sudo", "-S", "/bin/sh", "-c", script)
		cmd.Stdin = strings.NewReader(r.SudoPassword + "\n")
	} else {
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", script)
	}
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := Result{
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		ExitCode:  getExitCode(err),
		Duration:  time.Since(start),
		Timestamp: start,
	}
	if err := sudoError(result.STDOUT + result.STDERR); err != nil {
		return result, err
	}
	return result, err
}

func (r *ScriptRunner) runRemote(ctx context.Context, script string) (Result, error) {
	if r.Dialer == nil {
		return Result{}, errors.New("ssh dialer is not initialized")
	}
	sshConfig, err := r.sshConfig()
	if err != nil {
		return Result{}, err
	}

	dialTimeout := 15 * time.Minute
	if deadline, ok := ctx.Deadline(); ok {
		dialTimeout = time.Until(deadline)
	}
	client, err := r.Dialer.Dial("tcp", r.Hostname+":22", sshConfig, dialTimeout)
	if err != nil {
		return Result{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return Result{}, err
	}
	defer session.Close()

	cmdStr := "/bin/sh -c " + scripttree.Quote(script)
	if r.Sudo {
		cmdStr = "sudo -S " + cmdStr
		session.Stdin = strings.NewReader(r.SudoPassword + "\n")
	}

	var stdout, stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	start := time.Now()
	runErr := session.Run(cmdStr)
	result := Result{
		STDOUT:    stdout.String(),
		STDERR:    stderr.String(),
		ExitCode:  exitCodeFromSSH(runErr),
		Duration:  time.Since(start),
		Timestamp: start,
	}
	if runErr != nil {
		slog.Error("script failed over ssh",
			"hostname", r.Hostname, "exitcode", result.ExitCode, "stderr", result.STDERR)
	}
	if err := sudoError(result.STDOUT + result.STDERR); err != nil {
		return result, err
	}
	return result, runErr
}

func (r *ScriptRunner) sshConfig() (*ssh.ClientConfig, error) {
	var authMethod ssh.AuthMethod

	if r.Password != "" {
		slog.Debug("using password authentication", "hostname", r.Hostname)
		authMethod = ssh.Password(r.Password)
	} else {
		slog.Debug("using public key authentication", "hostname", r.Hostname)
		var keyManager SSHKeyManager
		if r.KeyPassphrase != "" {
			keyManager = FileSSHKeyManager{}
		} else {
			keyManager = AgentSSHKeyManager{}
		}
		keys, err := keyManager.ReadPrivateKeys(r.KeyPassphrase)
		if err != nil {
			return nil, err
		}
		authMethod = ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			return keys, nil
		})
	}

	return &ssh.ClientConfig{
		User:            r.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}, nil
}

func (r *ScriptRunner) isLocal() bool {
	return r.Hostname == "localhost" || r.Hostname == "127.0.0.1"
}

func sudoError(output string) error {
	if strings.Contains(output, "incorrect password") {
		return errors.New("sudo: incorrect password provided")
	}
	if strings.Contains(output, "is not in the sudoers file") {
		return errors.New("sudo: user is not in the sudoers file")
	}
	return nil
}

func getExitCode(err error) int {
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			status := exitError.Sys().(syscall.WaitStatus)
			return status.ExitStatus()
		}
	}
	return 0
}

func exitCodeFromSSH(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus()
	}
	return -1
}

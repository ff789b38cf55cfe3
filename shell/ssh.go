package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/shellfs/shellfs/internal/clock"
	"github.com/shellfs/shellfs/internal/metrics"
	"github.com/shellfs/shellfs/internal/retry"
)

// SSHRunner runs each command in a new session of an established SSH connection.
type SSHRunner struct {
	client    *ssh.Client
	elevation Elevation
	metrics   runnerMetrics
}

// NewSSHRunner returns a runner executing commands over the provided client.
func NewSSHRunner(client *ssh.Client, e Elevation, mr *metrics.Registry) *SSHRunner {
	return &SSHRunner{client: client, elevation: e, metrics: newRunnerMetrics(mr, TransportSSH)}
}

// Run implements Runner.
func (r *SSHRunner) Run(ctx context.Context, priv Privilege, command string) (*Result, error) {
	sess, err := r.client.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "unable to open SSH session")
	}
	defer sess.Close() //nolint:errcheck

	var stdout, stderr bytes.Buffer

	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			sess.Signal(ssh.SIGKILL) //nolint:errcheck
			sess.Close()             //nolint:errcheck
		case <-done:
		}
	}()

	t0 := clock.Now()
	err = sess.Run(r.elevation.CommandLine(priv, command))

	if ctx.Err() != nil {
		return nil, errors.Wrapf(ctx.Err(), "canceled while running %q", command)
	}

	res := &Result{Command: command}

	var ee *ssh.ExitError

	switch {
	case err == nil:
	case errors.As(err, &ee):
		res.ExitCode = ee.ExitStatus()
	default:
		return nil, errors.Wrapf(err, "error running %q over SSH", command)
	}

	res.Stdout = splitLines(stdout.String())
	res.Stderr = splitLines(stderr.String())

	r.metrics.record(res)
	log(ctx).Debugf("%v ssh command %q exited with %v in %v", priv, command, res.ExitCode, clock.Since(t0))

	return res, nil
}

var _ Runner = (*SSHRunner)(nil)

func writeKnownHostsDataStringToTempFile(data string) (string, error) {
	tf, err := os.CreateTemp("", "shellfs-known-hosts")
	if err != nil {
		return "", errors.Wrap(err, "error creating temp file")
	}

	defer tf.Close() //nolint:errcheck

	if _, err := io.WriteString(tf, data); err != nil {
		return "", errors.Wrap(err, "error writing temporary file")
	}

	return tf.Name(), nil
}

// getHostKeyCallback returns a HostKeyCallback that validates the connected host based on KnownHostsFile or KnownHostsData.
func getHostKeyCallback(opt *Options) (ssh.HostKeyCallback, error) {
	if opt.KnownHostsData != "" {
		// knownhosts.New() only accepts file names.
		tmpFile, err := writeKnownHostsDataStringToTempFile(opt.KnownHostsData)
		if err != nil {
			return nil, err
		}

		defer os.Remove(tmpFile) //nolint:errcheck

		//nolint:wrapcheck
		return knownhosts.New(tmpFile)
	}

	if f := opt.knownHostsFile(); !filepath.IsAbs(f) {
		return nil, errors.Errorf("known hosts path must be absolute")
	}

	//nolint:wrapcheck
	return knownhosts.New(opt.knownHostsFile())
}

// getSigner parses and returns a signer for the user-entered private key.
func getSigner(opts *Options) (ssh.Signer, error) {
	privateKeyData := []byte(opts.KeyData)

	if opts.KeyData == "" {
		if !filepath.IsAbs(opts.Keyfile) {
			return nil, errors.Errorf("key file path must be absolute")
		}

		var err error

		privateKeyData, err = os.ReadFile(opts.Keyfile)
		if err != nil {
			return nil, errors.Wrap(err, "error reading private key file")
		}
	}

	key, err := ssh.ParsePrivateKey(privateKeyData)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing private key")
	}

	return key, nil
}

func createSSHConfig(opts *Options) (*ssh.ClientConfig, error) {
	hostKeyCallback, err := getHostKeyCallback(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to get host key callback for %s", opts.Host)
	}

	signer, err := getSigner(opts)
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User: opts.Username,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: hostKeyCallback,
	}, nil
}

// isRetriableDialError returns false for errors that will not go away by themselves.
func isRetriableDialError(err error) bool {
	var ke *knownhosts.KeyError
	if errors.As(err, &ke) {
		return false
	}

	return !strings.Contains(err.Error(), "unable to authenticate")
}

func dialSSH(ctx context.Context, opts *Options) (*ssh.Client, error) {
	config, err := createSSHConfig(opts)
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.port())

	log(ctx).Debugf("dialing %v@%v", opts.Username, addr)

	return retry.WithExponentialBackoff(ctx, "dialing "+addr, func() (*ssh.Client, error) {
		//nolint:wrapcheck
		return ssh.Dial("tcp", addr, config)
	}, isRetriableDialError)
}

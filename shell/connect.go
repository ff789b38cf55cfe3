package shell

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/shellfs/shellfs/internal/metrics"
)

// Conn bundles a Runner and an Opener reaching the same privileged shell.
type Conn struct {
	Runner Runner
	Opener Opener

	closers []func() error
}

// Close releases all resources held by the connection.
func (c *Conn) Close() error {
	var firstErr error

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.closers = nil

	return firstErr
}

// Connect establishes the transport described by opts.
func Connect(ctx context.Context, opts *Options, mr *metrics.Registry) (*Conn, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid connection options")
	}

	switch {
	case opts.Transport == TransportLocal:
		return connectLocal(ctx, opts, mr)
	case opts.ExternalSSH:
		return connectExternalSSH(ctx, opts, mr)
	default:
		return connectSSH(ctx, opts, mr)
	}
}

func connectLocal(ctx context.Context, opts *Options, mr *metrics.Registry) (*Conn, error) {
	c := &Conn{Runner: NewProcessRunner(opts.Elevation, mr)}

	if opts.SFTPServer == "" {
		c.Opener = LocalOpener{}
		return c, nil
	}

	o, err := StartProcessSFTP(ctx, opts.Elevation.ElevatedArgv(opts.SFTPServer))
	if err != nil {
		return nil, err
	}

	c.Opener = o
	c.closers = append(c.closers, o.Close)

	return c, nil
}

func (o *Options) externalSSHArgv() []string {
	argv := []string{o.sshCommand()}

	if o.SSHArguments != "" {
		argv = append(argv, strings.Fields(o.SSHArguments)...)
	}

	return append(argv, o.Username+"@"+o.Host)
}

func connectExternalSSH(ctx context.Context, opts *Options, mr *metrics.Registry) (*Conn, error) {
	wrapper := opts.externalSSHArgv()
	c := &Conn{Runner: NewWrappedRunner(wrapper, opts.Elevation, mr)}

	sftpArgv := append(append([]string(nil), wrapper...), "-s", "sftp")
	if opts.SFTPServer != "" {
		sftpArgv = append(append([]string(nil), wrapper...), opts.Elevation.CommandLine(Elevated, opts.SFTPServer))
	}

	o, err := StartProcessSFTP(ctx, sftpArgv)
	if err != nil {
		return nil, err
	}

	c.Opener = o
	c.closers = append(c.closers, o.Close)

	return c, nil
}

func connectSSH(ctx context.Context, opts *Options, mr *metrics.Registry) (*Conn, error) {
	client, err := dialSSH(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect")
	}

	c := &Conn{
		Runner:  NewSSHRunner(client, opts.Elevation, mr),
		closers: []func() error{client.Close},
	}

	o, err := StartSSHSFTP(ctx, client, opts.Elevation, opts.SFTPServer)
	if err != nil {
		c.Close() //nolint:errcheck
		return nil, err
	}

	c.Opener = o
	c.closers = append(c.closers, o.Close)

	return c, nil
}

package shell

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/shellfs/shellfs/fs"
	"github.com/shellfs/shellfs/internal/osexec"
)

const sftpPacketSize = 1 << 15

// SFTPOpener opens files through an SFTP session served by a privileged sftp-server.
type SFTPOpener struct {
	cli       *sftp.Client
	closeFunc func() error
}

// Open implements Opener.
func (o *SFTPOpener) Open(ctx context.Context, path string) (File, error) {
	f, err := o.cli.Open(path)
	if isNotExist(err) {
		return nil, errors.Wrapf(fs.ErrEntryNotFound, "unable to open %v", path)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "unrecognized error when opening SFTP file %v", path)
	}

	return f, nil
}

// Close terminates the SFTP session and the server process.
func (o *SFTPOpener) Close() error {
	if err := o.cli.Close(); err != nil {
		return errors.Wrap(err, "closing SFTP client")
	}

	if o.closeFunc != nil {
		return o.closeFunc()
	}

	return nil
}

func isNotExist(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		return true
	}

	return strings.Contains(err.Error(), "does not exist")
}

// StartProcessSFTP launches argv as a local process speaking the SFTP protocol on stdin/stdout.
func StartProcessSFTP(ctx context.Context, argv []string) (*SFTPOpener, error) {
	log(ctx).Debugf("launching SFTP server process %v", strings.Join(argv, " "))

	//nolint:gosec
	cmd := exec.Command(argv[0], argv[1:]...)
	osexec.DisableInterruptSignal(cmd)

	cmd.Stderr = os.Stderr

	wr, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "error opening stdin pipe")
	}

	rd, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "error opening stdout pipe")
	}

	if err = cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "error starting %v", argv[0])
	}

	closeFunc := func() error {
		if p := cmd.Process; p != nil {
			p.Kill() //nolint:errcheck
		}

		cmd.Wait() //nolint:errcheck

		return nil
	}

	c, err := sftp.NewClientPipe(rd, wr)
	if err != nil {
		closeFunc() //nolint:errcheck

		return nil, errors.Wrap(err, "error creating sftp client pipe")
	}

	return &SFTPOpener{cli: c, closeFunc: closeFunc}, nil
}

// StartSSHSFTP starts an SFTP session over an established SSH connection. When server is empty the
// sftp subsystem of the SSH server is used, otherwise server is executed with the given elevation.
func StartSSHSFTP(ctx context.Context, client *ssh.Client, e Elevation, server string) (*SFTPOpener, error) {
	if server == "" {
		c, err := sftp.NewClient(client, sftp.MaxPacket(sftpPacketSize))
		if err != nil {
			return nil, errors.Wrap(err, "unable to create sftp client")
		}

		return &SFTPOpener{cli: c}, nil
	}

	sess, err := client.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "unable to open SSH session")
	}

	wr, err := sess.StdinPipe()
	if err != nil {
		sess.Close() //nolint:errcheck
		return nil, errors.Wrap(err, "error opening SSH stdin pipe")
	}

	rd, err := sess.StdoutPipe()
	if err != nil {
		sess.Close() //nolint:errcheck
		return nil, errors.Wrap(err, "error opening SSH stdout pipe")
	}

	cmdline := e.CommandLine(Elevated, server)

	log(ctx).Debugf("starting remote SFTP server %q", cmdline)

	if err := sess.Start(cmdline); err != nil {
		sess.Close() //nolint:errcheck
		return nil, errors.Wrap(err, "unable to start remote SFTP server")
	}

	c, err := sftp.NewClientPipe(rd, wr, sftp.MaxPacket(sftpPacketSize))
	if err != nil {
		sess.Close() //nolint:errcheck
		return nil, errors.Wrap(err, "error creating sftp client pipe")
	}

	return &SFTPOpener{cli: c, closeFunc: sess.Close}, nil
}

// LocalOpener opens files with the privileges of the current process.
type LocalOpener struct{}

// Open implements Opener.
func (LocalOpener) Open(ctx context.Context, path string) (File, error) {
	f, err := os.Open(path) //nolint:gosec
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(fs.ErrEntryNotFound, "unable to open %v", path)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %v", path)
	}

	return f, nil
}

var (
	_ Opener    = (*SFTPOpener)(nil)
	_ Opener    = LocalOpener{}
	_ io.Closer = (*SFTPOpener)(nil)
)

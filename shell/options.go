package shell

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Supported transports.
const (
	TransportLocal = "local"
	TransportSSH   = "ssh"
)

// DefaultSFTPServer is the usual location of the OpenSSH sftp-server binary.
const DefaultSFTPServer = "/usr/lib/openssh/sftp-server"

// Options describes how to reach the privileged shell.
type Options struct {
	Transport string    `json:"transport" yaml:"transport"`
	Elevation Elevation `json:"elevation" yaml:"elevation"`

	// SFTPServer is the sftp-server executable started with elevated privileges to serve file reads.
	// When empty, local transports open files directly and ssh transports use the sftp subsystem.
	SFTPServer string `json:"sftpServer,omitempty" yaml:"sftpServer,omitempty"`

	Host           string `json:"host,omitempty" yaml:"host,omitempty"`
	Port           int    `json:"port,omitempty" yaml:"port,omitempty"`
	Username       string `json:"username,omitempty" yaml:"username,omitempty"`
	Keyfile        string `json:"keyfile,omitempty" yaml:"keyfile,omitempty"`
	KeyData        string `json:"keyData,omitempty" yaml:"keyData,omitempty"`
	KnownHostsFile string `json:"knownHostsFile,omitempty" yaml:"knownHostsFile,omitempty"`
	KnownHostsData string `json:"knownHostsData,omitempty" yaml:"knownHostsData,omitempty"`

	ExternalSSH  bool   `json:"externalSSH,omitempty" yaml:"externalSSH,omitempty"`
	SSHCommand   string `json:"sshCommand,omitempty" yaml:"sshCommand,omitempty"`
	SSHArguments string `json:"sshArguments,omitempty" yaml:"sshArguments,omitempty"`
}

// Validate checks that options are consistent.
func (o *Options) Validate() error {
	if err := o.Elevation.Validate(); err != nil {
		return err
	}

	switch o.Transport {
	case TransportLocal:
		return nil
	case TransportSSH:
		if o.Host == "" || o.Username == "" {
			return errors.New("ssh transport requires host and username")
		}

		if !o.ExternalSSH && o.Keyfile == "" && o.KeyData == "" {
			return errors.New("must provide either key file or key data")
		}

		return nil
	default:
		return errors.Errorf("unsupported transport %q", o.Transport)
	}
}

func (o *Options) port() int {
	if o.Port == 0 {
		return 22 //nolint:mnd
	}

	return o.Port
}

func (o *Options) sshCommand() string {
	if o.SSHCommand == "" {
		return "ssh"
	}

	return o.SSHCommand
}

func (o *Options) knownHostsFile() string {
	if o.KnownHostsFile == "" {
		d, _ := os.UserHomeDir()

		return filepath.Join(d, ".ssh", "known_hosts")
	}

	return o.KnownHostsFile
}

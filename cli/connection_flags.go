package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	atunits "github.com/alecthomas/units"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/shellfs/shellfs/shell"
	"github.com/shellfs/shellfs/shellfs"
)

// configFile is the document accepted by --config-file, in JSON or (with a .yaml or .yml extension) YAML.
type configFile struct {
	Connection shell.Options   `json:"connection" yaml:"connection"`
	Session    shellfs.Options `json:"session" yaml:"session"`
}

// connectionFlags describe how to reach the privileged shell.
// Flags that are set override the values loaded from --config-file.
type connectionFlags struct {
	configFile string

	flags      shell.Options
	elevation  string
	candidates []string
	chunkSize  atunits.Base2Bytes
	maxRetries int
}

func (c *connectionFlags) setup(svc appServices, app *kingpin.Application) {
	app.Flag("config-file", "JSON or YAML file with connection and session options").Envar(svc.EnvName("CONFIG_FILE")).PlaceHolder("PATH").StringVar(&c.configFile)

	app.Flag("transport", "How to reach the shell").Envar(svc.EnvName("TRANSPORT")).EnumVar(&c.flags.Transport, shell.TransportLocal, shell.TransportSSH)
	app.Flag("elevation", "How to run privileged commands").Envar(svc.EnvName("ELEVATION")).EnumVar(&c.elevation,
		string(shell.ElevationNone), string(shell.ElevationSudo), string(shell.ElevationSu))
	app.Flag("sftp-server", "Path to sftp-server started with elevated privileges for file reads").Envar(svc.EnvName("SFTP_SERVER")).StringVar(&c.flags.SFTPServer)

	app.Flag("host", "SSH server hostname").Envar(svc.EnvName("HOST")).StringVar(&c.flags.Host)
	app.Flag("port", "SSH server port").Envar(svc.EnvName("PORT")).IntVar(&c.flags.Port)
	app.Flag("username", "SSH server username").Envar(svc.EnvName("USERNAME")).StringVar(&c.flags.Username)
	app.Flag("keyfile", "Path to private key file for SSH server").Envar(svc.EnvName("KEYFILE")).StringVar(&c.flags.Keyfile)
	app.Flag("key-data", "Private key data").Envar(svc.EnvName("KEY_DATA")).StringVar(&c.flags.KeyData)
	app.Flag("known-hosts", "Path to known_hosts file").Envar(svc.EnvName("KNOWN_HOSTS")).StringVar(&c.flags.KnownHostsFile)
	app.Flag("known-hosts-data", "known_hosts file entries").Envar(svc.EnvName("KNOWN_HOSTS_DATA")).StringVar(&c.flags.KnownHostsData)

	app.Flag("external", "Launch external passwordless SSH command").Envar(svc.EnvName("EXTERNAL_SSH")).BoolVar(&c.flags.ExternalSSH)
	app.Flag("ssh-command", "SSH command").Envar(svc.EnvName("SSH_COMMAND")).StringVar(&c.flags.SSHCommand)
	app.Flag("ssh-args", "Arguments to external SSH command").Envar(svc.EnvName("SSH_ARGS")).StringVar(&c.flags.SSHArguments)

	app.Flag("toolbox", "Utility binary candidate, in order of preference (repeatable)").Envar(svc.EnvName("TOOLBOX")).StringsVar(&c.candidates)
	app.Flag("chunk-size", "Read chunk size").Hidden().BytesVar(&c.chunkSize)
	app.Flag("max-retries", "Number of reopen attempts when a file read ends prematurely").Hidden().IntVar(&c.maxRetries)
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// options returns the effective connection and session options.
func (c *connectionFlags) options() (*shell.Options, shellfs.Options, error) {
	cfg, err := c.loadConfigFile()
	if err != nil {
		return nil, shellfs.Options{}, err
	}

	o := &cfg.Connection

	overrideString(&o.Transport, c.flags.Transport)
	overrideString(&o.SFTPServer, c.flags.SFTPServer)
	overrideString(&o.Host, c.flags.Host)
	overrideString(&o.Username, c.flags.Username)
	overrideString(&o.Keyfile, c.flags.Keyfile)
	overrideString(&o.KeyData, c.flags.KeyData)
	overrideString(&o.KnownHostsFile, c.flags.KnownHostsFile)
	overrideString(&o.KnownHostsData, c.flags.KnownHostsData)
	overrideString(&o.SSHCommand, c.flags.SSHCommand)
	overrideString(&o.SSHArguments, c.flags.SSHArguments)

	if c.elevation != "" {
		o.Elevation = shell.Elevation(c.elevation)
	}

	if c.flags.Port != 0 {
		o.Port = c.flags.Port
	}

	if c.flags.ExternalSSH {
		o.ExternalSSH = true
	}

	if o.Transport == "" {
		o.Transport = shell.TransportLocal
	}

	if o.Elevation == "" {
		o.Elevation = shell.ElevationNone
	}

	s := cfg.Session

	if len(c.candidates) > 0 {
		s.Toolbox.Candidates = c.candidates
	}

	if c.chunkSize > 0 {
		s.Reader.ChunkSize = int(c.chunkSize)
	}

	if c.maxRetries > 0 {
		s.Reader.MaxRetries = c.maxRetries
	}

	return o, s, nil
}

func (c *connectionFlags) loadConfigFile() (configFile, error) {
	var cfg configFile

	if c.configFile == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(c.configFile)
	if err != nil {
		return cfg, errors.Wrap(err, "unable to read config file")
	}

	unmarshal := json.Unmarshal

	switch strings.ToLower(filepath.Ext(c.configFile)) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	}

	if err := unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "invalid config file %v", c.configFile)
	}

	return cfg, nil
}

package shell_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shellfs/shellfs/shell"
)

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		opts    shell.Options
		wantErr bool
	}{
		{shell.Options{Transport: shell.TransportLocal, Elevation: shell.ElevationSudo}, false},
		{shell.Options{Transport: shell.TransportLocal, Elevation: "doas"}, true},
		{shell.Options{Transport: "telnet", Elevation: shell.ElevationNone}, true},
		{shell.Options{Transport: shell.TransportSSH, Elevation: shell.ElevationNone, Host: "h"}, true},
		{shell.Options{Transport: shell.TransportSSH, Elevation: shell.ElevationNone, Host: "h", Username: "u"}, true},
		{shell.Options{Transport: shell.TransportSSH, Elevation: shell.ElevationNone, Host: "h", Username: "u", Keyfile: "/k"}, false},
		{shell.Options{Transport: shell.TransportSSH, Elevation: shell.ElevationSu, Host: "h", Username: "u", ExternalSSH: true}, false},
	}

	for _, tc := range cases {
		err := tc.opts.Validate()
		if tc.wantErr {
			require.Error(t, err, "%+v", tc.opts)
		} else {
			require.NoError(t, err, "%+v", tc.opts)
		}
	}
}

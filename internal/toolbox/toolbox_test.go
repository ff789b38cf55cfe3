package toolbox_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/shellfs/shellfs/internal/shelltest"
	"github.com/shellfs/shellfs/internal/testlogging"
	"github.com/shellfs/shellfs/internal/toolbox"
	"github.com/shellfs/shellfs/shell"
)

func TestResolveStopsAtFirstCandidate(t *testing.T) {
	ctx := testlogging.Context(t)

	r := shelltest.NewRunner().
		OnFailure(`which "toybox"`, 1).
		OnStdout(`which "busybox"`, "/system/bin/busybox").
		OnStdout(`"/system/bin/busybox" --version`, "BusyBox v1.34.1 (2022-01-01)", "extra").
		OnStdout(`which "/system/bin/toybox"`, "/system/bin/toybox")

	tb, err := toolbox.Resolve(ctx, r, toolbox.Options{})
	require.NoError(t, err)
	require.Equal(t, "busybox", tb.Name)
	require.Equal(t, "/system/bin/busybox", tb.Path)
	require.Equal(t, `"/system/bin/busybox"`, tb.Quoted)
	require.Equal(t, "BusyBox v1.34.1 (2022-01-01)", tb.Version)
	require.False(t, tb.Bare())

	require.Equal(t, []string{
		`which "toybox"`,
		`which "busybox"`,
		`"/system/bin/busybox" --version`,
	}, r.Commands())

	for _, c := range r.Calls() {
		require.Equal(t, shell.Elevated, c.Privilege)
	}
}

func TestResolveIgnoresExitStatusOfProbe(t *testing.T) {
	ctx := testlogging.Context(t)

	r := shelltest.NewRunner().
		On(`which "toybox"`, shell.Result{ExitCode: 1, Stdout: []string{"/bin/toybox"}})

	tb, err := toolbox.Resolve(ctx, r, toolbox.Options{})
	require.NoError(t, err)
	require.Equal(t, "/bin/toybox", tb.Path)

	// version probe failed, which is not fatal
	require.Empty(t, tb.Version)
}

func TestResolveCustomCandidates(t *testing.T) {
	ctx := testlogging.Context(t)

	r := shelltest.NewRunner().
		OnStdout(`which "mybox"`, "  /opt/bin/mybox  ")

	tb, err := toolbox.Resolve(ctx, r, toolbox.Options{Candidates: []string{"mybox"}})
	require.NoError(t, err)
	require.Equal(t, "mybox", tb.Name)
	require.Equal(t, "/opt/bin/mybox", tb.Path)
	require.Equal(t, `"/opt/bin/mybox" ls -bAll "/data"`, tb.Command("ls -bAll", `"/data"`))
}

func TestResolveFallsBackToBareExecutables(t *testing.T) {
	ctx := testlogging.Context(t)

	r := shelltest.NewRunner().
		OnStdout(`which "ls"`, "/bin/ls")

	tb, err := toolbox.Resolve(ctx, r, toolbox.Options{})
	require.NoError(t, err)
	require.True(t, tb.Bare())
	require.Equal(t, `ls -bAll "/x"`, tb.Command("ls -bAll", `"/x"`))

	cmds := r.Commands()
	require.Len(t, cmds, len(toolbox.DefaultCandidates)+1)
	require.Equal(t, `which "ls"`, cmds[len(cmds)-1])
}

func TestResolveUnavailable(t *testing.T) {
	ctx := testlogging.Context(t)

	r := shelltest.NewRunner()

	_, err := toolbox.Resolve(ctx, r, toolbox.Options{})
	require.Error(t, err)

	var ue *toolbox.UnavailableError

	require.True(t, errors.As(err, &ue))
	require.Equal(t, toolbox.DefaultCandidates, ue.Tried)

	for _, c := range toolbox.DefaultCandidates {
		require.Contains(t, err.Error(), c)
	}
}

func TestResolveTransportFailure(t *testing.T) {
	ctx := testlogging.Context(t)

	errBroken := errors.New("connection reset")
	r := shelltest.NewRunner().OnError(`which "toybox"`, errBroken)

	_, err := toolbox.Resolve(ctx, r, toolbox.Options{})
	require.ErrorIs(t, err, errBroken)
	require.Len(t, r.Commands(), 1)
}

func TestWhich(t *testing.T) {
	ctx := testlogging.Context(t)

	r := shelltest.NewRunner().
		OnStdout(`which "sftp-server"`, "", "/usr/lib/sftp-server")

	p, err := toolbox.Which(ctx, r, "sftp-server")
	require.NoError(t, err)
	require.Equal(t, toolbox.Probe{Name: "sftp-server", Path: "/usr/lib/sftp-server", Found: true}, p)

	p, err = toolbox.Which(ctx, r, "missing")
	require.NoError(t, err)
	require.False(t, p.Found)
}

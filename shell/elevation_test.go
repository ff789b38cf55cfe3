package shell_test

import (
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shellfs/shellfs/shell"
)

func TestElevationArgv(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"/bin/sh", "-c", "ls"}, shell.ElevationSudo.Argv(shell.Normal, "ls"))
	require.Equal(t, []string{"sudo", "-n", "/bin/sh", "-c", "ls"}, shell.ElevationSudo.Argv(shell.Elevated, "ls"))
	require.Equal(t, []string{"su", "-c", "ls"}, shell.ElevationSu.Argv(shell.Elevated, "ls"))
	require.Equal(t, []string{"/bin/sh", "-c", "ls"}, shell.ElevationNone.Argv(shell.Elevated, "ls"))

	require.Equal(t, []string{"sudo", "-n", "/usr/lib/sftp-server"}, shell.ElevationSudo.ElevatedArgv("/usr/lib/sftp-server"))
	require.Equal(t, []string{"su", "-c", `"/usr/lib/sftp-server"`}, shell.ElevationSu.ElevatedArgv("/usr/lib/sftp-server"))
	require.Equal(t, []string{"/x"}, shell.ElevationNone.ElevatedArgv("/x"))
}

func TestElevationCommandLine(t *testing.T) {
	t.Parallel()

	cmd := `ls -bAll "/data/\$x"`

	require.Equal(t, cmd, shell.ElevationSudo.CommandLine(shell.Normal, cmd))
	require.Equal(t, cmd, shell.ElevationNone.CommandLine(shell.Elevated, cmd))
	require.Equal(t, `sudo -n /bin/sh -c "ls -bAll \"/data/\\\$x\""`, shell.ElevationSudo.CommandLine(shell.Elevated, cmd))
	require.Equal(t, `su -c "ls -bAll \"/data/\\\$x\""`, shell.ElevationSu.CommandLine(shell.Elevated, cmd))
}

func TestElevationCommandLineSurvivesShell(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX shell")
	}

	// replace sudo with a pass-through so the nested quoting can be verified without privileges.
	line := shell.ElevationSudo.CommandLine(shell.Elevated, `printf '%s' "a \$b \"c\""`)
	line = "sudo() { shift; \"$@\"; }; " + line

	out, err := exec.Command("/bin/sh", "-c", line).Output()
	require.NoError(t, err)
	require.Equal(t, `a $b "c"`, string(out))
}

func TestElevationValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, shell.ElevationSu.Validate())
	require.Error(t, shell.Elevation("doas").Validate())
}

package osexec_test

import (
	"context"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shellfs/shellfs/internal/osexec"
)

func TestDisableInterruptSignal(t *testing.T) {
	c := &exec.Cmd{}

	osexec.DisableInterruptSignal(c)
	require.NotNil(t, c.SysProcAttr)
}

func TestPlainCommandStarts(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}

	c := exec.Command("/bin/sh", "-c", "exit 0")
	osexec.DisableInterruptSignal(c)

	require.NoError(t, c.Run())
}

func TestCanceledProcessGroupIsKilled(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("process groups are unix-only")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c := exec.CommandContext(ctx, "/bin/sh", "-c", "sleep 30")
	osexec.DisableInterruptSignal(c)
	osexec.KillGroupOnCancel(c)

	start := time.Now()

	require.Error(t, c.Run())
	require.Less(t, time.Since(start), 10*time.Second)
}

package runner

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/testutil"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests shell out to sh")
	}
}

func TestStartAndWait(t *testing.T) {
	requireShell(t)

	ctx, cancel := testutil.NewTestContext()
	defer cancel()

	l, err := Start(ctx, []string{"sh", "-c", "exit 0"}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Greater(t, l.PID(), 0)

	res := l.Wait()
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, []string{"sh", "-c", "exit 0"}, res.Command)
	assert.Greater(t, res.Wall, time.Duration(0))
	assert.False(t, res.Start.IsZero())
}

func TestWaitPropagatesExitCode(t *testing.T) {
	requireShell(t)

	l, err := Start(context.Background(), []string{"sh", "-c", "exit 3"}, testutil.NewTestLogger(t))
	require.NoError(t, err)

	res := l.Wait()
	assert.Equal(t, 3, res.ExitCode)
}

func TestWaitSignalDeathDistinctCode(t *testing.T) {
	requireShell(t)

	// The target kills itself with SIGKILL (9); the recorded exit code
	// must be a distinct non-zero value.
	l, err := Start(context.Background(), []string{"sh", "-c", "kill -9 $$"}, testutil.NewTestLogger(t))
	require.NoError(t, err)

	res := l.Wait()
	assert.Equal(t, 128+9, res.ExitCode)
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start(context.Background(), []string{"/nonexistent/program"}, testutil.NewTestLogger(t))
	assert.Error(t, err)
}

func TestStartEmptyTarget(t *testing.T) {
	_, err := Start(context.Background(), nil, testutil.NewTestLogger(t))
	assert.Error(t, err)
}

func TestDescribeEnvironment(t *testing.T) {
	env := DescribeEnvironment()
	assert.Greater(t, env.Cores, 0)
	assert.NotEmpty(t, env.Runtime)
	// TotalMemory is best-effort; zero only when the platform facility
	// is unavailable.
}

func TestPeakChildRSS(t *testing.T) {
	requireShell(t)

	l, err := Start(context.Background(), []string{"sh", "-c", "exit 0"}, testutil.NewTestLogger(t))
	require.NoError(t, err)
	l.Wait()

	// After waiting for a child, getrusage reports a positive peak on
	// platforms that support it.
	if peak := PeakChildRSS(); peak != nil {
		assert.Greater(t, *peak, uint64(0))
	}
}

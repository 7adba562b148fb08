package exec

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheatsley/profiler/internal/errors"
)

func TestCommandCapturesOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	c := New([]string{"echo", "hello"})

	require.NoError(t, c.Start(&stdout, &stderr))
	code, err := c.Wait()
	require.NoError(t, err)

	assert.Equal(t, 0, code)
	assert.Equal(t, "hello\n", stdout.String())
	assert.Empty(t, stderr.String())
}

func TestCommandStderr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	c := New([]string{"echo", "oops", ">&2"})

	require.NoError(t, c.Start(&stdout, &stderr))
	_, err := c.Wait()
	require.NoError(t, err)

	assert.Equal(t, "oops\n", stderr.String())
	assert.Empty(t, stdout.String())
}

func TestCommandNonZeroExit(t *testing.T) {
	var stdout, stderr bytes.Buffer
	c := New([]string{"exit", "3"})

	require.NoError(t, c.Start(&stdout, &stderr))
	code, err := c.Wait()
	require.NoError(t, err)

	assert.Equal(t, 3, code)
	assert.Equal(t, 3, c.ExitCode())
}

func TestCommandShellFeatures(t *testing.T) {
	var stdout, stderr bytes.Buffer
	c := New([]string{"printf", "'a\\nb\\n'", "|", "wc", "-l"})

	require.NoError(t, c.Start(&stdout, &stderr))
	code, err := c.Wait()
	require.NoError(t, err)

	assert.Equal(t, 0, code)
	assert.Equal(t, "2", string(bytes.TrimSpace(stdout.Bytes())))
}

func TestCommandEmptyArgs(t *testing.T) {
	c := New(nil)

	err := c.Start(nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
}

func TestCommandDoubleStart(t *testing.T) {
	var stdout, stderr bytes.Buffer
	c := New([]string{"true"})

	require.NoError(t, c.Start(&stdout, &stderr))
	err := c.Start(&stdout, &stderr)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExec))

	_, _ = c.Wait()
}

func TestCommandWaitBeforeStart(t *testing.T) {
	c := New([]string{"true"})

	_, err := c.Wait()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrExec))
}

func TestCommandTerminate(t *testing.T) {
	var stdout, stderr bytes.Buffer
	c := New([]string{"sleep", "30"})

	require.NoError(t, c.Start(&stdout, &stderr))
	assert.True(t, c.Running())

	waitDone := make(chan struct{})
	go func() {
		defer close(waitDone)
		_, _ = c.Wait()
	}()

	start := time.Now()
	c.Terminate(2 * time.Second)

	select {
	case <-waitDone:
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Terminate")
	}
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.False(t, c.Running())
}

func TestCommandString(t *testing.T) {
	c := New([]string{"python", "train.py", "--epochs", "10"})
	assert.Equal(t, "python train.py --epochs 10", c.String())
}

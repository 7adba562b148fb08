package source

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheatsley/profiler/internal/errors"
)

func TestParseGPUQuery(t *testing.T) {
	tests := []struct {
		name        string
		out         string
		wantDevices int
		wantErr     bool
	}{
		{
			name:        "single device csv",
			out:         "0, 45, 2048, 10240, 65\n",
			wantDevices: 1,
		},
		{
			name:        "two devices",
			out:         "0, 45, 2048, 10240, 65\n1, 90, 8192, 10240, 80\n",
			wantDevices: 2,
		},
		{
			name:        "whitespace delimited",
			out:         "0 45 2048 10240 65\n",
			wantDevices: 1,
		},
		{
			name:        "n/a fields treated as zero",
			out:         "0, [N/A], 2048, 10240, [N/A]\n",
			wantDevices: 1,
		},
		{
			name:    "empty output",
			out:     "",
			wantErr: true,
		},
		{
			name:    "too few fields",
			out:     "0, 45, 2048\n",
			wantErr: true,
		},
		{
			name:    "non numeric utilization",
			out:     "0, lots, 2048, 10240, 65\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, err := parseGPUQuery(tt.out)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrParse))
				return
			}
			require.NoError(t, err)
			// One utilization and one memory sample per device.
			require.Len(t, samples, tt.wantDevices*2)
		})
	}
}

func TestParseGPUQueryValues(t *testing.T) {
	samples, err := parseGPUQuery("0, 45, 5120, 10240, 65\n")
	require.NoError(t, err)
	require.Len(t, samples, 2)

	util := samples[0]
	assert.Equal(t, KindGPU, util.Kind)
	assert.Equal(t, 0, util.Index)
	assert.Equal(t, "GPU0", util.Label)
	assert.InDelta(t, 45, util.Percent, 0.001)
	assert.Equal(t, "65°C", util.Detail)

	vram := samples[1]
	assert.Equal(t, KindGPUMem, vram.Kind)
	assert.Equal(t, "VRAM0", vram.Label)
	assert.InDelta(t, 50, vram.Percent, 0.001)
}

func TestGPUSourceProbeOnce(t *testing.T) {
	calls := 0
	failing := func(ctx context.Context, name string, args ...string) (string, error) {
		calls++
		return "", fmt.Errorf("exit status 9")
	}

	s := NewGPUSourceWithRunner(failing)

	_, err := s.Poll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSource))
	assert.True(t, s.Unavailable())

	// Subsequent polls must not spawn the tool again.
	for i := 0; i < 5; i++ {
		_, err := s.Poll(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrSource))
	}
	assert.Equal(t, 1, calls, "failed tool must be invoked exactly once")
}

func TestGPUSourceParseErrorDoesNotDisable(t *testing.T) {
	outputs := []string{"garbage\n", "0, 45, 2048, 10240, 65\n"}
	calls := 0
	runner := func(ctx context.Context, name string, args ...string) (string, error) {
		out := outputs[calls]
		calls++
		return out, nil
	}

	s := NewGPUSourceWithRunner(runner)

	_, err := s.Poll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrParse))
	assert.False(t, s.Unavailable(), "a transient parse error must not disable the source")

	samples, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}

func TestGPUSourceMultiDevice(t *testing.T) {
	runner := func(ctx context.Context, name string, args ...string) (string, error) {
		return "0, 10, 1024, 8192, 50\n1, 20, 2048, 8192, 55\n", nil
	}

	s := NewGPUSourceWithRunner(runner)
	samples, err := s.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 4)

	assert.Equal(t, "GPU0", samples[0].Label)
	assert.Equal(t, "VRAM0", samples[1].Label)
	assert.Equal(t, "GPU1", samples[2].Label)
	assert.Equal(t, "VRAM1", samples[3].Label)
	assert.Equal(t, 1, samples[2].Index)
}

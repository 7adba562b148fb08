package source

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sheatsley/profiler/internal/errors"
)

// gpuQueryTimeout bounds each vendor tool invocation so a wedged driver
// cannot stall the sampling loop.
const gpuQueryTimeout = 2 * time.Second

var gpuQueryArgs = []string{
	"--query-gpu=index,utilization.gpu,memory.used,memory.total,temperature.gpu",
	"--format=csv,noheader,nounits",
}

// runnerFunc invokes the vendor query tool and returns its stdout.
type runnerFunc func(ctx context.Context, name string, args ...string) (string, error)

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gpuQueryTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return string(out), err
}

// GPUSource derives per-device GPU utilization by invoking the vendor query
// tool. The tool is probed exactly once: a missing executable fails the
// constructor, and a tool that starts failing mid-session marks the source
// permanently unavailable so no further subprocesses are spawned.
type GPUSource struct {
	tool        string
	runner      runnerFunc
	unavailable bool
}

// NewGPUSource probes for nvidia-smi and returns a GPU source, or a SOURCE
// error when the tool is absent. Absence is not an error for the overall
// system; it only disables the GPU gauges.
func NewGPUSource() (*GPUSource, error) {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSource,
			"GPU query tool not found",
			"GPU gauges are disabled on hosts without the NVIDIA driver tools")
	}
	return &GPUSource{tool: path, runner: runCommand}, nil
}

// NewGPUSourceWithRunner creates a GPU source with an injected runner.
// Used by tests to verify probe-once behavior without spawning subprocesses.
func NewGPUSourceWithRunner(runner runnerFunc) *GPUSource {
	return &GPUSource{tool: "nvidia-smi", runner: runner}
}

func (s *GPUSource) Name() string { return "gpu" }

// Unavailable reports whether the source has been permanently disabled.
func (s *GPUSource) Unavailable() bool { return s.unavailable }

// Poll invokes the query tool and returns a utilization and a memory sample
// per device. After the first failed invocation the source reports SOURCE
// errors without spawning further subprocesses.
func (s *GPUSource) Poll(ctx context.Context) ([]Sample, error) {
	if s.unavailable {
		return nil, errors.New(errors.ErrSource, "GPU source marked unavailable", "")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := s.runner(ctx, s.tool, gpuQueryArgs...)
	if err != nil {
		s.unavailable = true
		return nil, errors.WrapWithCode(err, errors.ErrSource,
			"GPU query tool failed",
			"GPU gauges are disabled for the rest of this session")
	}

	samples, err := parseGPUQuery(out)
	if err != nil {
		// Malformed output for one tick; the tool itself still works.
		return nil, err
	}
	return samples, nil
}

// parseGPUQuery parses per-device query output. Each line describes one
// device with comma- or whitespace-delimited fields:
//
//	index, utilization.gpu, memory.used, memory.total, temperature.gpu
//
// Memory values are MiB, temperature is Celsius. [N/A] fields are treated
// as zero rather than failing the whole reading.
func parseGPUQuery(out string) ([]Sample, error) {
	now := time.Now()
	var samples []Sample

	device := 0
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := splitGPUFields(line)
		if len(fields) < 5 {
			return nil, errors.New(errors.ErrParse,
				fmt.Sprintf("GPU query line has %d fields, need 5", len(fields)),
				"")
		}

		idx := device
		if n, err := strconv.Atoi(fields[0]); err == nil {
			idx = n
		}

		util, err := parseGPUNumber(fields[1])
		if err != nil {
			return nil, err
		}
		memUsed, err := parseGPUNumber(fields[2])
		if err != nil {
			return nil, err
		}
		memTotal, err := parseGPUNumber(fields[3])
		if err != nil {
			return nil, err
		}
		temp, err := parseGPUNumber(fields[4])
		if err != nil {
			return nil, err
		}

		samples = append(samples, Sample{
			Kind:    KindGPU,
			Index:   idx,
			Label:   fmt.Sprintf("GPU%d", idx),
			Percent: clampPercent(util),
			Detail:  fmt.Sprintf("%.0f°C", temp),
			Time:    now,
		})

		memPercent := 0.0
		if memTotal > 0 {
			memPercent = memUsed / memTotal * 100
		}
		samples = append(samples, Sample{
			Kind:    KindGPUMem,
			Index:   idx,
			Label:   fmt.Sprintf("VRAM%d", idx),
			Percent: clampPercent(memPercent),
			Detail:  fmt.Sprintf("%.0f / %.0f MiB", memUsed, memTotal),
			Time:    now,
		})

		device++
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrParse, "error scanning GPU query output", "")
	}

	if len(samples) == 0 {
		return nil, errors.New(errors.ErrParse, "GPU query produced no device lines", "")
	}

	return samples, nil
}

// splitGPUFields splits a device line on commas when present, otherwise on
// whitespace, trimming each field.
func splitGPUFields(line string) []string {
	var raw []string
	if strings.Contains(line, ",") {
		raw = strings.Split(line, ",")
	} else {
		raw = strings.Fields(line)
	}
	fields := make([]string, 0, len(raw))
	for _, f := range raw {
		fields = append(fields, strings.TrimSpace(f))
	}
	return fields
}

// parseGPUNumber parses a numeric field, mapping [N/A] and empty to 0.
func parseGPUNumber(field string) (float64, error) {
	if field == "" || strings.EqualFold(field, "[N/A]") {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(field, "%"), 64)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrParse,
			"GPU query field is not numeric: "+field, "")
	}
	return v, nil
}

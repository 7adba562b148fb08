package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/sheatsley/profiler/internal/config"
	"github.com/sheatsley/profiler/pkg/profiler"
)

// demoWords feed the synthetic output stream.
var demoWords = []string{
	"aurora", "basalt", "cascade", "dynamo", "ember", "flux",
	"granite", "horizon", "isotope", "juniper", "kelvin", "lumen",
	"meridian", "nimbus", "obsidian", "pulsar", "quartz", "raster",
	"sierra", "tundra", "umbra", "vertex", "wavelet", "zenith",
}

// demoCommand runs a session against a shell loop that prints words on a
// short delay, exercising the gauges and the output pane.
func demoCommand() error {
	if demoPlainFlag {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	script := fmt.Sprintf(
		"i=0; while :; do for w in %s; do i=$((i+1)); echo \"$i $w\"; sleep 0.2; done; done",
		strings.Join(demoWords, " "),
	)

	sess, err := profiler.New(profiler.Options{
		Config: config.DefaultConfig(),
		Args:   []string{script},
	})
	if err != nil {
		return err
	}

	if err := sess.Start(); err != nil {
		return err
	}

	// Runs until the user quits; the loop never exits on its own.
	_, waitErr := sess.Wait()
	sess.Stop()
	if derr := sess.Deinit(); derr != nil && waitErr == nil {
		waitErr = derr
	}
	return waitErr
}

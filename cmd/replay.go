package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mj1618/a11y-chain/internal/filters"
	"github.com/mj1618/a11y-chain/internal/model"
	"github.com/mj1618/a11y-chain/internal/output"
	"github.com/mj1618/a11y-chain/internal/script"
)

var replayCmd = &cobra.Command{
	Use:   "replay [script]",
	Short: "Run a script of input events through the chains",
	Long: `Run a YAML or JSON list of input steps through the accessibility chains and
report, per step, whether a node consumed it, plus the accessibility events
raised and what reached the platform.

The script is read from the given file, or from stdin when no file (or "-")
is given. By default events are injected into an in-memory recorder; use
--live to deliver them to the OS.

Supported step types: pointer, key, move, clear, features, shield, gesture, sleep

Example:
  a11y-chain replay --features magnification <<'EOF'
  - pointer: { action: down, x: 960, y: 540, t: 0 }
  - pointer: { action: up,   x: 960, y: 540, t: 50 }
  - pointer: { action: down, x: 960, y: 540, t: 100 }
  - pointer: { action: up,   x: 960, y: 540, t: 150 }
  - pointer: { action: down, x: 960, y: 540, t: 200 }
  - pointer: { action: up,   x: 960, y: 540, t: 250 }
  EOF`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().String("features", "", "Features to enable, overriding the config (e.g. \"touch_exploration,magnification\")")
	replayCmd.Flags().Bool("stop-on-error", true, "Stop at the first failing step")
	replayCmd.Flags().Bool("live", false, "Inject into the OS instead of recording")
	replayCmd.Flags().String("journal", "", "Also append accessibility events to this sqlite journal")
	replayCmd.Flags().Bool("trace", false, "Include every event handed to the platform, in delivery order")
}

// collector keeps every accessibility event it observes.
type collector struct {
	mu     sync.Mutex
	events []model.AccessibilityEvent
}

func (c *collector) OnAccessibilityEvent(ev model.AccessibilityEvent) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) all() []model.AccessibilityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]model.AccessibilityEvent(nil), c.events...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func readScript(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return data, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	features, _ := cmd.Flags().GetString("features")
	stopOnError, _ := cmd.Flags().GetBool("stop-on-error")
	live, _ := cmd.Flags().GetBool("live")
	journal, _ := cmd.Flags().GetString("journal")
	trace, _ := cmd.Flags().GetBool("trace")

	data, err := readScript(cmd, args)
	if err != nil {
		return err
	}
	steps, err := script.Parse(data)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg, runtimeOptions{Live: live, Features: features, Journal: journal})
	if err != nil {
		return err
	}
	events := &collector{}
	rt.hub.Subscribe(events)
	var rec *filters.Recorder
	if trace {
		if rec, err = rt.ic.Trace(); err != nil {
			rt.Close()
			return err
		}
	}

	results, runErr := script.NewExecutor(rt.ic).Run(cmd.Context(), steps, stopOnError)

	res := output.ReplayResult{
		Features: rt.ic.Features().String(),
		Chains:   rt.ic.Chains(),
		Steps:    results,
	}
	if vp, ok := rt.ic.Viewport(); ok {
		res.Viewport = &vp
	}
	res.Injected.Sink = rt.ic.Stats()
	if rec != nil {
		res.Trace = rec.Records()
	}
	if rt.recording != nil {
		res.Injected.Pointers = len(rt.recording.Pointers())
		res.Injected.Keys = len(rt.recording.Keys())
		res.Injected.Moves = len(rt.recording.Moves())
		res.Injected.Actions = describeInjected(rt.recording.Pointers(), rt.recording.Keys())
	}

	// Closing drains the hub so every event has reached the collector.
	if err := rt.Close(); err != nil {
		rt.logger().Warn("shutdown", "error", err)
	}
	res.Events = events.all()

	if err := output.Fprint(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	return runErr
}

// describeInjected renders what reached the platform, one line per event.
func describeInjected(pointers []*model.PointerEvent, keys []*model.KeyEvent) []string {
	var out []string
	for _, p := range pointers {
		if cur, ok := p.Current(); ok {
			out = append(out, fmt.Sprintf("pointer %s #%d (%g,%g)", p.Action, cur.ID, cur.X, cur.Y))
		}
	}
	for _, k := range keys {
		out = append(out, fmt.Sprintf("key %s %s", k.Action, k.Code))
	}
	return out
}

package cmd

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/a11y-chain/internal/config"
	"github.com/mj1618/a11y-chain/internal/interceptor"
	"github.com/mj1618/a11y-chain/internal/observer"
	"github.com/mj1618/a11y-chain/internal/script"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the chains on JSONL input and stream accessibility events",
	Long: `Run the accessibility chains as a long-lived process. Input steps are read
from stdin as JSONL, one step object per line, and every accessibility event
is written to stdout as a JSON line.

The config file is watched: saving it rebuilds the chains with the new
features and timings without dropping subscribers or the zoom shield.

Output is always JSONL regardless of the --format flag.

Use Ctrl+C or --duration to stop.

Example:
  echo '{"key": {"key": "numpad_6"}}' | a11y-chain watch --features mouse_key --dry-run`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("features", "", "Features to enable, overriding the config on every reload")
	watchCmd.Flags().String("journal", "", "Append accessibility events to this sqlite journal")
	watchCmd.Flags().Bool("dbus", false, "Emit accessibility events on the session bus")
	watchCmd.Flags().Bool("dry-run", false, "Record injected events in memory instead of delivering them to the OS")
	watchCmd.Flags().Bool("no-reload", false, "Do not watch the config file")
	watchCmd.Flags().Bool("exit-on-eof", true, "Stop when stdin is closed")
	watchCmd.Flags().Int("duration", 0, "Max seconds to run (0 = until Ctrl+C)")
}

type watchLine struct {
	Type    string          `json:"type"`
	TS      int64           `json:"ts"`
	Step    int             `json:"step,omitempty"`
	Error   string          `json:"error,omitempty"`
	Elapsed string          `json:"elapsed,omitempty"`
	Steps   int             `json:"steps,omitempty"`
	Stats   *observer.Stats `json:"stats,omitempty"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	features, _ := cmd.Flags().GetString("features")
	journal, _ := cmd.Flags().GetString("journal")
	dbus, _ := cmd.Flags().GetBool("dbus")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noReload, _ := cmd.Flags().GetBool("no-reload")
	exitOnEOF, _ := cmd.Flags().GetBool("exit-on-eof")
	durationSec, _ := cmd.Flags().GetInt("duration")

	var override interceptor.Feature
	if features != "" {
		mask, err := interceptor.ParseFeatures(features)
		if err != nil {
			return err
		}
		override = mask
	}

	path, _ := rootCmd.PersistentFlags().GetString("config")
	loader := config.NewLoader(path)
	defer loader.Close()
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	rt, err := newRuntime(cfg, runtimeOptions{Live: !dryRun, Features: features, Journal: journal, DBus: dbus})
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer rt.Close()
	log := rt.logger()

	lines := observer.NewJSONLWriter(cmd.OutOrStdout())
	rt.hub.Subscribe(lines)

	loader.OnChange(func(c *config.Config) {
		if features != "" {
			c.SetFeatureMask(override)
		}
		rebuilt, err := rt.ic.Configure(c.FeatureMask(), c.Options())
		if err != nil {
			log.Error("apply reloaded config", "error", err)
			return
		}
		log.Info("config reloaded", "path", loader.Path(), "rebuilt", rebuilt)
	})
	if !noReload {
		if err := loader.Watch(); err != nil {
			log.Warn("config hot reload disabled", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if durationSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(durationSec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	exec := script.NewExecutor(rt.ic)
	inputDone := make(chan int, 1)
	go func() {
		n := 0
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			n++
			if err := runStepLine(ctx, exec, line); err != nil {
				lines.Encode(watchLine{Type: "error", TS: time.Now().Unix(), Step: n, Error: err.Error()})
			}
			if ctx.Err() != nil {
				break
			}
		}
		if err := scanner.Err(); err != nil {
			log.Warn("read stdin", "error", err)
		}
		inputDone <- n
	}()

	steps := 0
	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case n := <-inputDone:
			steps = n
			inputDone = nil
			if exitOnEOF {
				running = false
			}
		case err := <-loader.Errors():
			log.Warn("config reload failed", "error", err)
			lines.Encode(watchLine{Type: "error", TS: time.Now().Unix(), Error: err.Error()})
		}
	}

	// Stop input before draining observers.
	rt.ic.Close()
	rt.hub.Close()
	stats := rt.hub.Stats()
	return lines.Encode(watchLine{
		Type:    "done",
		TS:      time.Now().Unix(),
		Elapsed: fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
		Steps:   steps,
		Stats:   &stats,
	})
}

// runStepLine parses one JSONL step and runs it.
func runStepLine(ctx context.Context, exec *script.Executor, line []byte) error {
	step, err := script.ParseLine(line)
	if err != nil {
		return err
	}
	kind, params, err := step.Kind()
	if err != nil {
		return err
	}
	_, err = exec.Exec(ctx, kind, params)
	return err
}

// Package server exposes the accessibility chains as MCP tools.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mj1618/a11y-chain/internal/interceptor"
	"github.com/mj1618/a11y-chain/internal/model"
	"github.com/mj1618/a11y-chain/internal/observer"
	"github.com/mj1618/a11y-chain/internal/script"
	"github.com/mj1618/a11y-chain/internal/store"
	"github.com/mj1618/a11y-chain/internal/version"
)

// Config holds MCP server configuration.
type Config struct {
	Transport string
	Port      int
	CacheTTL  time.Duration
}

// Server wraps the MCP server around an interceptor. Tool handlers take no
// server-wide lock; the chains synchronize themselves.
type Server struct {
	ic      *interceptor.Interceptor
	exec    *script.Executor
	hub     *observer.Hub
	journal *store.Journal
	cache   *EventCache
	log     *slog.Logger
	mcp     *mcpserver.MCPServer
}

// New creates a server with every tool registered. journal may be nil, in
// which case the events tool reads the hub's recent buffer.
func New(ic *interceptor.Interceptor, hub *observer.Hub, journal *store.Journal, cfg Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		ic:      ic,
		exec:    script.NewExecutor(ic),
		hub:     hub,
		journal: journal,
		log:     log.With("component", "mcp"),
	}
	if journal != nil {
		s.cache = NewEventCache(journal, cfg.CacheTTL)
		journal.OnInsert(func(model.AccessibilityEvent) { s.cache.InvalidateAll() })
	}
	s.mcp = mcpserver.NewMCPServer(
		"a11y-chain",
		version.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)
	s.registerTools()
	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcpserver.MCPServer { return s.mcp }

// Serve runs the configured transport until it fails or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, cfg Config) error {
	switch cfg.Transport {
	case "", "stdio":
		s.log.Info("serving", "transport", "stdio")
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		addr := fmt.Sprintf(":%d", cfg.Port)
		errCh := make(chan error, 1)
		go func() { errCh <- httpServer.Start(addr) }()
		s.log.Info("serving", "transport", "streamable-http", "addr", addr)
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		}
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *Server) registerTools() {
	// pointer
	s.mcp.AddTool(
		mcp.NewTool("pointer",
			mcp.WithDescription("Feed one pointer event through the pointer chain. Reports whether an accessibility node consumed it."),
			mcp.WithString("action", mcp.Description("down, move, up, cancel, button_down, button_up, hover_enter, hover_move, hover_exit"), mcp.Required()),
			mcp.WithNumber("x", mcp.Description("X coordinate in screen pixels")),
			mcp.WithNumber("y", mcp.Description("Y coordinate in screen pixels, growing downwards")),
			mcp.WithNumber("id", mcp.Description("Pointer ID for multi-touch (default: 0)")),
			mcp.WithString("source", mcp.Description("touchscreen, touchpad or mouse (default: touchscreen)")),
			mcp.WithNumber("device", mcp.Description("Input device ID (default: 0)")),
			mcp.WithString("button", mcp.Description("Mouse button for button actions: left, right, middle")),
			mcp.WithNumber("t", mcp.Description("Event time in ms since the server started (default: now)")),
		),
		s.handlePointer,
	)

	// key
	s.mcp.AddTool(
		mcp.NewTool("key",
			mcp.WithDescription("Feed a key event through the key chain. Action 'press' sends down then up."),
			mcp.WithString("key", mcp.Description("Key name (e.g. 'enter', 'numpad_5') or numeric code"), mcp.Required()),
			mcp.WithString("action", mcp.Description("press, down, up or cancel (default: press)")),
			mcp.WithNumber("device", mcp.Description("Input device ID (default: 0)")),
		),
		s.handleKey,
	)

	// move_mouse
	s.mcp.AddTool(
		mcp.NewTool("move_mouse",
			mcp.WithDescription("Deliver a relative cursor movement to every node of the pointer chain"),
			mcp.WithNumber("dx", mcp.Description("Horizontal offset"), mcp.Required()),
			mcp.WithNumber("dy", mcp.Description("Vertical offset"), mcp.Required()),
		),
		s.handleMoveMouse,
	)

	// set_features
	s.mcp.AddTool(
		mcp.NewTool("set_features",
			mcp.WithDescription("Enable exactly the given accessibility features and rebuild the chains if they changed"),
			mcp.WithString("features", mcp.Description("Comma separated names (magnification, touch_exploration, filter_key_events, inject_touch_events, mouse_key, screen_touch), a numeric mask, or 'none'"), mcp.Required()),
		),
		s.handleSetFeatures,
	)

	// clear
	s.mcp.AddTool(
		mcp.NewTool("clear",
			mcp.WithDescription("Drop buffered and pending state for one input device in both chains"),
			mcp.WithNumber("device", mcp.Description("Input device ID"), mcp.Required()),
		),
		s.handleClear,
	)

	// chains
	s.mcp.AddTool(
		mcp.NewTool("chains",
			mcp.WithDescription("Show the enabled features, the node order of each chain, delivery stats and the magnifier viewport"),
		),
		s.handleChains,
	)

	// events
	s.mcp.AddTool(
		mcp.NewTool("events",
			mcp.WithDescription("List recent accessibility events (gestures, magnification changes, handled keys), newest last"),
			mcp.WithString("type", mcp.Description("Only events of this type (e.g. 'gesture')")),
			mcp.WithNumber("limit", mcp.Description("Max events (default: 50)")),
			mcp.WithString("since", mcp.Description("Only events newer than this duration ago (e.g. '5m')")),
		),
		s.handleEvents,
	)

	// inject_gesture
	s.mcp.AddTool(
		mcp.NewTool("inject_gesture",
			mcp.WithDescription("Play a touch gesture through the pointer chain. Requires the inject_touch_events feature."),
			mcp.WithArray("paths", mcp.Description("Array of {points: [{x, y}], duration_ms} strokes played in order"), mcp.Required()),
			mcp.WithBoolean("wait", mcp.Description("Wait for the gesture to finish (default: true)")),
		),
		s.handleInjectGesture,
	)
}

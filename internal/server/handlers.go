package server

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/a11y-chain/internal/model"
	"github.com/mj1618/a11y-chain/internal/output"
	"github.com/mj1618/a11y-chain/internal/script"
)

const defaultEventLimit = 50

// resultToText serializes v to YAML for MCP responses.
func resultToText(v interface{}) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

// inputHandler runs one script step.
func (s *Server) inputHandler(ctx context.Context, request mcp.CallToolRequest, kind string) (*mcp.CallToolResult, error) {
	result, err := s.exec.Exec(ctx, kind, request.GetArguments())
	if err != nil {
		result.Error = err.Error()
		return mcp.NewToolResultError(resultToText(result)), nil
	}
	return mcp.NewToolResultText(resultToText(result)), nil
}

func (s *Server) handlePointer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.inputHandler(ctx, request, "pointer")
}

func (s *Server) handleKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.inputHandler(ctx, request, "key")
}

func (s *Server) handleMoveMouse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.inputHandler(ctx, request, "move")
}

func (s *Server) handleClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.inputHandler(ctx, request, "clear")
}

func (s *Server) handleInjectGesture(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.inputHandler(ctx, request, "gesture")
}

func (s *Server) handleSetFeatures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	features := script.StringParam(params, "features", "")
	if features == "" {
		return mcp.NewToolResultError("features is required (use 'none' to disable everything)"), nil
	}
	result, err := s.exec.Exec(ctx, "features", map[string]interface{}{"set": features})
	if err != nil {
		result.Error = err.Error()
		return mcp.NewToolResultError(resultToText(result)), nil
	}
	s.log.Info("features set over mcp", "features", result.Input)
	return mcp.NewToolResultText(resultToText(s.chains())), nil
}

func (s *Server) chains() output.ChainsResult {
	res := output.ChainsResult{
		Features: s.ic.Features().String(),
		Chains:   s.ic.Chains(),
		Sink:     s.ic.Stats(),
	}
	if vp, ok := s.ic.Viewport(); ok {
		res.Viewport = &vp
	}
	return res
}

func (s *Server) handleChains(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(resultToText(s.chains())), nil
}

func (s *Server) handleEvents(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	limit := script.IntParam(params, "limit", defaultEventLimit)
	eventType := model.EventType(script.StringParam(params, "type", ""))

	var within time.Duration
	var since time.Time
	if raw := script.StringParam(params, "since", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid since %q: %v", raw, err)), nil
		}
		within = d
		since = time.Now().Add(-d)
	}

	var events []model.AccessibilityEvent
	if s.cache != nil {
		entries, err := s.cache.Recent(EventQuery{Type: eventType, Within: within, Limit: limit})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		// Journal queries return newest first.
		for i := len(entries) - 1; i >= 0; i-- {
			events = append(events, entries[i].Event)
		}
	} else if s.hub != nil {
		for _, ev := range s.hub.Recent(0) {
			if eventType != "" && ev.Type != eventType {
				continue
			}
			if !since.IsZero() && ev.Timestamp.Before(since) {
				continue
			}
			events = append(events, ev)
		}
		if limit > 0 && len(events) > limit {
			events = events[len(events)-limit:]
		}
	} else {
		return mcp.NewToolResultError("no event source configured"), nil
	}

	if len(events) == 0 {
		return mcp.NewToolResultText("[]\n"), nil
	}
	return mcp.NewToolResultText(resultToText(events)), nil
}

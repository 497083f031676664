// Package bus publishes accessibility events as D-Bus signals on the session
// bus, so desktop assistive tools can follow gestures and magnification
// without linking against a11y-chain.
package bus

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/mj1618/a11y-chain/internal/model"
)

// D-Bus names.
const (
	BusName             = "org.a11ychain"
	Interface           = "org.a11ychain.Events"
	SignalAccessibility = Interface + ".Accessibility"

	ObjectPath dbus.ObjectPath = "/org/a11ychain/Events"
)

// Conn is the part of *dbus.Conn the emitter uses.
type Conn interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
	Close() error
}

// Emitter is a chain.Observer that emits one signal per event. The signal
// body is (type, gesture, source, device, unix_ms, x, y, scale, text) with
// D-Bus signature "sssixddds".
type Emitter struct {
	conn Conn
	log  *slog.Logger

	sent   atomic.Uint64
	failed atomic.Uint64
}

// New wraps an existing connection.
func New(conn Conn, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{conn: conn, log: log.With("component", "dbus")}
}

// ConnectSession opens a private session bus connection and claims BusName.
// Losing the name to another instance is logged, not fatal: signals are
// still emitted from this connection's unique name.
func ConnectSession(log *slog.Logger) (*Emitter, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	e := New(conn, log)
	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		e.log.Warn("bus name already owned", "name", BusName)
	}
	return e, nil
}

// Body returns the signal arguments for ev.
func Body(ev model.AccessibilityEvent) []interface{} {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return []interface{}{
		string(ev.Type),
		string(ev.Gesture),
		ev.Source,
		int32(ev.Device),
		ts.UnixMilli(),
		ev.X,
		ev.Y,
		ev.Scale,
		ev.Text,
	}
}

func (e *Emitter) OnAccessibilityEvent(ev model.AccessibilityEvent) {
	if err := e.conn.Emit(ObjectPath, SignalAccessibility, Body(ev)...); err != nil {
		e.failed.Add(1)
		e.log.Debug("emit failed", "type", ev.Type, "error", err)
		return
	}
	e.sent.Add(1)
}

// Counts returns how many signals were sent and how many failed.
func (e *Emitter) Counts() (sent, failed uint64) {
	return e.sent.Load(), e.failed.Load()
}

// Close closes the connection.
func (e *Emitter) Close() error {
	return e.conn.Close()
}

package platform

import (
	"fmt"
	"runtime"
)

// Provider bundles the platform backends for the current OS.
type Provider struct {
	Name     string
	Injector Injector
}

// Options configures a Provider.
type Options struct {
	Screen Bounds // Absolute coordinate range for touch injection
}

// ErrUnsupported is returned on unsupported platforms.
var ErrUnsupported = fmt.Errorf("a11y-chain has no input backend for %s/%s; supported: linux (uinput), darwin (cgo)", runtime.GOOS, runtime.GOARCH)

// NewProviderFunc is set by platform-specific packages via init().
// See internal/platform/uinput and internal/platform/darwin.
var NewProviderFunc func(opts Options) (*Provider, error)

// RequestPermissionsFunc is set by platform-specific packages via init().
// It triggers OS permission prompts (e.g. accessibility trust) at startup.
var RequestPermissionsFunc func()

// NewProvider returns a Provider for the current OS.
func NewProvider(opts Options) (*Provider, error) {
	if NewProviderFunc == nil {
		return nil, ErrUnsupported
	}
	if opts.Screen.Empty() {
		opts.Screen = DefaultScreen
	}
	return NewProviderFunc(opts)
}

// NewRecordingProvider returns a Provider whose injector only records.
func NewRecordingProvider() *Provider {
	return &Provider{Name: "recording", Injector: NewRecording()}
}

//go:build darwin

// Package darwin provides macOS input injection using CoreGraphics events.
// All functionality requires CGo.
// When CGo is disabled, the package compiles as a no-op stub.
package darwin

//go:build darwin && cgo

package darwin

import "github.com/mj1618/a11y-chain/internal/platform"

func init() {
	platform.NewProviderFunc = func(opts platform.Options) (*platform.Provider, error) {
		if err := CheckAccessibilityPermission(); err != nil {
			return nil, err
		}
		return &platform.Provider{Name: "coregraphics", Injector: NewInjector()}, nil
	}
	platform.RequestPermissionsFunc = func() {
		if !IsAccessibilityTrusted() {
			requestTrust()
		}
	}
}

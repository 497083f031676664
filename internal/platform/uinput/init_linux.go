//go:build linux

package uinput

import "github.com/mj1618/a11y-chain/internal/platform"

func init() {
	platform.NewProviderFunc = func(opts platform.Options) (*platform.Provider, error) {
		inj, err := Open(opts.Screen)
		if err != nil {
			return nil, err
		}
		return &platform.Provider{Name: "uinput", Injector: inj}, nil
	}
}

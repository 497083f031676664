package interceptor

import "testing"

func TestParseFeatures(t *testing.T) {
	tests := []struct {
		in      string
		want    Feature
		wantErr bool
	}{
		{"", 0, false},
		{"none", 0, false},
		{"magnification", ScreenMagnification, false},
		{"magnification,touch_exploration", ScreenMagnification | TouchExploration, false},
		{"mouse_key | screen_touch", MouseKey | ScreenTouch, false},
		{"Filter_Key_Events", FilterKeyEvents, false},
		{"0x3", ScreenMagnification | TouchExploration, false},
		{"128", ScreenTouch, false},
		{"magnification,0x8", ScreenMagnification | InjectTouchEvents, false},
		{"telepathy", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFeatures(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFeatures(%q) = %#x, want %#x", tt.in, uint32(got), uint32(tt.want))
			}
		})
	}
}

func TestFeatureString(t *testing.T) {
	tests := []struct {
		in   Feature
		want string
	}{
		{0, "none"},
		{ScreenMagnification, "magnification"},
		{TouchExploration | ScreenMagnification, "magnification|touch_exploration"},
		{MouseKey | 0x200, "mouse_key|0x200"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("%#x.String() = %q, want %q", uint32(tt.in), got, tt.want)
		}
	}
}

func TestFeatureRoundTrip(t *testing.T) {
	for _, f := range AllFeatures() {
		got, err := ParseFeatures(f.String())
		if err != nil || got != f {
			t.Errorf("round trip of %s = %#x, %v", f, uint32(got), err)
		}
	}
}

func TestFeatureHas(t *testing.T) {
	mask := ScreenMagnification | MouseKey
	if !mask.Has(MouseKey) {
		t.Error("mask should have mouse_key")
	}
	if mask.Has(MouseKey | ScreenTouch) {
		t.Error("Has should require every bit")
	}
	if !Feature(0).Has(0) {
		t.Error("empty set has the empty set")
	}
}

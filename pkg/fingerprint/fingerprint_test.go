package fingerprint

import (
	"strings"
	"testing"

	"github.com/bppowerplay/portal/internal/model"
)

func baseSignals() model.DeviceSignals {
	return model.DeviceSignals{
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
		Language:          "en-US",
		ScreenResolution:  "1920x1080",
		TimezoneOffsetMin: -360,
		RenderFingerprint: "data:image/png;base64,iVBORw0KGgo",
		Platform:          "Linux x86_64",
	}
}

func TestDeviceIDDeterministic(t *testing.T) {
	a := DeviceID(baseSignals())
	b := DeviceID(baseSignals())
	if a != b {
		t.Fatalf("identical signals produced different ids: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "device_") {
		t.Fatalf("unexpected id format: %q", a)
	}
}

func TestDeviceIDChangesWithEachSignal(t *testing.T) {
	base := DeviceID(baseSignals())

	mutations := map[string]func(*model.DeviceSignals){
		"user agent":         func(s *model.DeviceSignals) { s.UserAgent = "Mozilla/5.0 (Windows NT 10.0)" },
		"language":           func(s *model.DeviceSignals) { s.Language = "bn-BD" },
		"screen resolution":  func(s *model.DeviceSignals) { s.ScreenResolution = "1366x768" },
		"timezone offset":    func(s *model.DeviceSignals) { s.TimezoneOffsetMin = 0 },
		"render fingerprint": func(s *model.DeviceSignals) { s.RenderFingerprint = "data:image/png;base64,other" },
	}

	for name, mutate := range mutations {
		sig := baseSignals()
		mutate(&sig)
		if got := DeviceID(sig); got == base {
			t.Errorf("changing %s did not change the device id", name)
		}
	}
}

func TestDeviceIDIgnoresPlatform(t *testing.T) {
	// Platform travels in the remote record for display but is not part of
	// the hashed tuple.
	sig := baseSignals()
	sig.Platform = "different"
	if DeviceID(sig) != DeviceID(baseSignals()) {
		t.Fatal("platform must not affect the device id")
	}
}

// Package fingerprint derives the device identifier the session guard
// compares against the remote device-ownership record.
//
// The identifier is a UX heuristic, not a security control: it only needs to
// be deterministic for one browser+device+display combination and to diverge
// when any signal changes. No collision resistance is claimed.
package fingerprint

import (
	"strconv"
	"strings"

	"github.com/bppowerplay/portal/internal/model"
)

const prefix = "device_"

// DeviceID hashes the fixed ordered signal tuple into an opaque identifier.
// Identical signals always yield the same id.
func DeviceID(sig model.DeviceSignals) string {
	tuple := strings.Join([]string{
		sig.UserAgent,
		sig.Language,
		sig.ScreenResolution,
		strconv.Itoa(sig.TimezoneOffsetMin),
		sig.RenderFingerprint,
	}, "|")

	// 32-bit shift-subtract rolling hash over the tuple's code points.
	var h int32
	for _, r := range tuple {
		h = (h << 5) - h + int32(r)
	}
	if h < 0 {
		h = -h
	}
	return prefix + strconv.FormatInt(int64(h), 36)
}

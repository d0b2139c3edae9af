// Package trust turns the collector's loosely typed signal bundle into a
// deterministic risk score and level.
//
// The collector runs on the client and is not trusted: every field is
// validated here, and anything missing or malformed is treated as maximally
// suspicious for its dimension (fail closed) rather than rejected.
package trust

import (
	"context"
	"net/netip"
	"strings"

	"github.com/mssola/useragent"

	"punchtrust/pkg/requestcontext"
)

// Signal bundle keys accepted from the collector.
const (
	keyDeviceID           = "device_id"
	keyDeviceSeenBefore   = "device_seen_before"
	keyUserAgent          = "user_agent"
	keyIPAddress          = "ip_address"
	keyLocationConsistent = "location_consistent"
	keyDistanceKM         = "distance_from_site_km"
	keyWithinUsualHours   = "within_usual_hours"
)

// Signals is the validated, strongly typed view of one punch's trust context.
// Every field is oriented so that true / larger means riskier; scoring is then
// monotonic by construction.
type Signals struct {
	// DeviceUnknown: no stable device identity was reported at all.
	DeviceUnknown bool

	// DeviceNew: the device has not been seen for this employee before.
	DeviceNew bool

	// BotAgent: the user agent is absent, unparseable, or a known bot.
	BotAgent bool

	// BadIP: the client IP is absent or not a valid address.
	BadIP bool

	// LocationDrift: the reported location is inconsistent with the
	// employee's profile.
	LocationDrift bool

	// DistanceKM is the reported distance from the assigned work site,
	// clamped to the configured cap. Missing or malformed distance is
	// reported at the cap.
	DistanceKM float64

	// UnusualHours: the punch falls outside the employee's usual window.
	UnusualHours bool
}

// Normalize validates the raw bundle into Signals. It never fails: bad input
// worsens the signal, it does not crash the punch.
//
// Values the HTTP middleware already extracted (user agent, client IP, device
// ID) are used as fallbacks when the bundle omits them, so a collector that
// sends nothing at all is still scored against what the transport observed.
func Normalize(ctx context.Context, raw map[string]any, distanceCapKM float64) Signals {
	var s Signals

	deviceID := stringField(raw, keyDeviceID)
	if deviceID == "" {
		deviceID = requestcontext.DeviceID(ctx)
	}
	s.DeviceUnknown = deviceID == ""

	// Absent or malformed "seen before" means we cannot vouch for the device.
	seenBefore, ok := boolField(raw, keyDeviceSeenBefore)
	s.DeviceNew = !ok || !seenBefore

	ua := stringField(raw, keyUserAgent)
	if ua == "" {
		ua = requestcontext.UserAgent(ctx)
	}
	s.BotAgent = suspiciousAgent(ua)

	ip := stringField(raw, keyIPAddress)
	if ip == "" {
		ip = requestcontext.ClientIP(ctx)
	}
	if _, err := netip.ParseAddr(ip); err != nil {
		s.BadIP = true
	}

	consistent, ok := boolField(raw, keyLocationConsistent)
	s.LocationDrift = !ok || !consistent

	if distance, ok := floatField(raw, keyDistanceKM); ok && distance >= 0 {
		s.DistanceKM = min(distance, distanceCapKM)
	} else {
		s.DistanceKM = distanceCapKM
	}

	withinHours, ok := boolField(raw, keyWithinUsualHours)
	s.UnusualHours = !ok || !withinHours

	return s
}

// suspiciousAgent reports whether the user agent fails to look like a real
// browser or mobile client.
func suspiciousAgent(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		return true
	}
	// A parseable agent has at least a recognizable browser or mobile engine.
	name, _ := ua.Browser()
	return name == "" && !ua.Mobile()
}

func stringField(raw map[string]any, key string) string {
	if raw == nil {
		return ""
	}
	if v, ok := raw[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func boolField(raw map[string]any, key string) (value, ok bool) {
	if raw == nil {
		return false, false
	}
	v, ok := raw[key].(bool)
	return v, ok
}

// floatField accepts JSON numbers (float64) and ints from direct callers.
func floatField(raw map[string]any, key string) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	switch v := raw[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

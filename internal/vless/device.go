package vless

import "strings"

// Platform is the closed set of device classes the landing page adapts to.
type Platform int

const (
	PlatformUniversal Platform = iota
	PlatformIOS
	PlatformAndroid
	PlatformWindows
	PlatformMacOS
)

func (p Platform) String() string {
	switch p {
	case PlatformIOS:
		return "ios"
	case PlatformAndroid:
		return "android"
	case PlatformWindows:
		return "windows"
	case PlatformMacOS:
		return "macos"
	default:
		return "universal"
	}
}

// Classify buckets a User-Agent into a Platform. iOS is checked before macOS
// because iPad user agents can carry "Mac OS X".
func Classify(userAgent string) Platform {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
		return PlatformIOS
	case strings.Contains(ua, "android"):
		return PlatformAndroid
	case strings.Contains(ua, "windows"):
		return PlatformWindows
	case strings.Contains(ua, "macintosh"), strings.Contains(ua, "mac os x"):
		return PlatformMacOS
	default:
		return PlatformUniversal
	}
}

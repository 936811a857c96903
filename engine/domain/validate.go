package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// Platform is a supported video source.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
)

// Accepted URL shapes. Checks are purely syntactic.
var videoURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(https?://)?(www\.)?youtube\.com/watch\?v=[\w-]{11}\S*$`),
	regexp.MustCompile(`^(https?://)?(www\.)?youtube\.com/shorts/[\w-]{11}\S*$`),
	regexp.MustCompile(`^(https?://)?youtu\.be/[\w-]{11}\S*$`),
	regexp.MustCompile(`^(https?://)?(www\.)?instagram\.com/p/[\w-]{11}/?\S*$`),
	regexp.MustCompile(`^(https?://)?(www\.)?instagram\.com/reel/[\w-]{11}/?\S*$`),
}

// IsSupportedURL reports whether raw matches one of the supported video URL
// shapes. A false result is a normal answer, not an error.
func IsSupportedURL(raw string) bool {
	for _, re := range videoURLPatterns {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}

// ValidateVideoURL returns a ValidationError for unsupported URLs.
func ValidateVideoURL(raw string) error {
	if !IsSupportedURL(strings.TrimSpace(raw)) {
		return NewValidationError("url", raw, ErrUnsupportedURL)
	}
	return nil
}

// DetectPlatform names the source platform of an accepted URL.
func DetectPlatform(raw string) Platform {
	if strings.Contains(raw, "youtube") || strings.Contains(raw, "youtu.be") {
		return PlatformYouTube
	}
	return PlatformInstagram
}

// ValidateScenario checks scenario fields that have a bounded domain.
func ValidateScenario(s ScenarioDescriptor) error {
	if s.RoastLevel != 0 && (s.RoastLevel < 1 || s.RoastLevel > 5) {
		return NewValidationError("roast_level", strconv.Itoa(s.RoastLevel), ErrInvalidScenario)
	}
	return nil
}

package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/postplanner/postplan/pkg/core"
)

// Limits and configuration
const (
	// MaxSlotNameLength is the maximum length for slot names
	MaxSlotNameLength = 128

	// MaxTitleLength is the maximum length for content titles
	MaxTitleLength = 255

	// MaxPlatformLength is the maximum length for platform identifiers
	MaxPlatformLength = 64

	// MaxCampaignLength is the maximum length for campaign names
	MaxCampaignLength = 128

	// MaxReasonLength is the maximum length for stored failure reasons
	MaxReasonLength = 4096

	// MaxConcurrency is the hard limit for dispatcher concurrency
	MaxConcurrency = 100
)

// validPlatform matches alphanumeric, hyphens, underscores, and dots
var validPlatform = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-\.]*$`)

// SlotName validates a slot display name.
func SlotName(name string) error {
	if strings.TrimSpace(name) == "" {
		return core.ErrEmptySlotName
	}
	if utf8.RuneCountInString(name) > MaxSlotNameLength {
		return core.ErrSlotNameTooLong
	}
	return nil
}

// Item validates the fields of a content item the engine depends on.
// The authoring system owns the record; the engine only refuses input it
// cannot schedule or project.
func Item(item *core.ContentItem) error {
	if strings.TrimSpace(item.Title) == "" {
		return core.ErrEmptyTitle
	}
	if utf8.RuneCountInString(item.Title) > MaxTitleLength {
		return core.ErrTitleTooLong
	}
	switch item.Type {
	case core.ContentImage, core.ContentVideo, core.ContentCarousel, core.ContentText:
	default:
		return core.ErrInvalidContent
	}
	if item.Platform == "" || len(item.Platform) > MaxPlatformLength || !validPlatform.MatchString(item.Platform) {
		return core.ErrInvalidPlatform
	}
	return nil
}

// SanitizeReason truncates and sanitizes failure reasons for storage.
func SanitizeReason(msg string) string {
	if msg == "" {
		return ""
	}

	// Strip null bytes and control characters (except whitespace)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))
	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()
	if utf8.RuneCountInString(result) > MaxReasonLength {
		runes := []rune(result)
		result = string(runes[:MaxReasonLength-3]) + "..."
	}
	return result
}

// ClampConcurrency ensures dispatcher concurrency is within limits.
func ClampConcurrency(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}

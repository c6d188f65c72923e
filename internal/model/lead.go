// Package model defines the data types shared across the scrape pipeline.
package model

import "strings"

// Platform identifies a supported social network.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
)

// ParsePlatform normalizes a platform name. Returns false for unknown values.
func ParsePlatform(s string) (Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "instagram", "ig":
		return PlatformInstagram, true
	case "tiktok", "tt":
		return PlatformTikTok, true
	default:
		return "", false
	}
}

// DisplayName returns the platform name as used in error details.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformInstagram:
		return "Instagram"
	case PlatformTikTok:
		return "TikTok"
	default:
		return string(p)
	}
}

// ProfileRequest is a single incoming scrape request.
type ProfileRequest struct {
	Platform Platform `json:"platform"`
	RawURL   string   `json:"url"`
}

// Target is a normalized fetch target. FetchURL is the URL actually
// requested (for Instagram this is the web profile info API endpoint);
// CanonicalProfileURL is the public profile URL echoed back in the result,
// always with a single trailing slash.
type Target struct {
	Platform            Platform
	Username            string
	FetchURL            string
	CanonicalProfileURL string
}

// EmailMatch is one extracted email address, lowercased.
type EmailMatch struct {
	Email string `json:"email"`
}

// PhoneMatch is one extracted phone number in E.164 form.
// Type is "international" when the source text carried a country code,
// "national" otherwise.
type PhoneMatch struct {
	Number string `json:"number"`
	Type   string `json:"type"`
}

const (
	PhoneTypeInternational = "international"
	PhoneTypeNational      = "national"
)

// LeadRecord is the final structured output for one profile.
// Emails and Phone are in first-seen order with no duplicate
// normalized values; both serialize as empty arrays, never null.
type LeadRecord struct {
	URL    string       `json:"url"`
	Bio    string       `json:"bio"`
	Emails []EmailMatch `json:"emails"`
	Phone  []PhoneMatch `json:"phone"`
}

// Package normalize canonicalizes user-supplied profile URLs and handles
// into fetchable targets.
package normalize

import (
	"net/url"
	"strings"

	"github.com/sells-group/social-leads/internal/model"
)

const (
	instagramHost = "instagram.com"
	tiktokHost    = "tiktok.com"

	// Instagram bios are served by the web profile info endpoint rather
	// than the HTML profile page, which buries the bio in script blobs.
	instagramAPIFormat = "https://i.instagram.com/api/v1/users/web_profile_info/?username="
)

// Normalize canonicalizes a raw profile URL or bare handle into a Target.
// Handle case is preserved; Instagram and TikTok handles are case-sensitive.
func Normalize(platform model.Platform, rawURL string) (model.Target, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return model.Target{}, model.NewValidationError(platform, "url or username cannot be empty")
	}

	username, err := extractUsername(platform, raw)
	if err != nil {
		return model.Target{}, err
	}
	if username == "" || strings.ContainsAny(username, " \t/?#") {
		return model.Target{}, model.NewValidationError(platform, "no valid username in %q", rawURL)
	}

	switch platform {
	case model.PlatformInstagram:
		return model.Target{
			Platform:            platform,
			Username:            username,
			FetchURL:            instagramAPIFormat + url.QueryEscape(username),
			CanonicalProfileURL: "https://www.instagram.com/" + username + "/",
		}, nil
	case model.PlatformTikTok:
		return model.Target{
			Platform:            platform,
			Username:            username,
			FetchURL:            "https://www.tiktok.com/@" + username,
			CanonicalProfileURL: "https://www.tiktok.com/@" + username + "/",
		}, nil
	default:
		return model.Target{}, model.NewValidationError(platform, "unsupported platform %q", string(platform))
	}
}

// extractUsername pulls the handle out of a full URL, a schemeless URL, or
// a bare handle (with or without a leading @).
func extractUsername(platform model.Platform, raw string) (string, error) {
	hasScheme := strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
	looksLikeURL := hasScheme || strings.Contains(raw, instagramHost+"/") || strings.Contains(raw, tiktokHost+"/")

	if !looksLikeURL {
		// Bare handle.
		return strings.TrimPrefix(raw, "@"), nil
	}

	toParse := raw
	if !hasScheme {
		toParse = "https://" + raw
	}
	u, err := url.Parse(toParse)
	if err != nil {
		return "", model.NewValidationError(platform, "unparseable url %q", raw)
	}

	host := strings.ToLower(u.Hostname())
	if !hostMatches(host, expectedHost(platform)) {
		return "", model.NewValidationError(platform, "host %q does not belong to %s", host, platform.DisplayName())
	}

	for _, seg := range strings.Split(u.EscapedPath(), "/") {
		if seg == "" {
			continue
		}
		return strings.TrimPrefix(seg, "@"), nil
	}
	return "", model.NewValidationError(platform, "no username segment in %q", raw)
}

func expectedHost(platform model.Platform) string {
	if platform == model.PlatformTikTok {
		return tiktokHost
	}
	return instagramHost
}

// hostMatches accepts the apex host and any subdomain of it.
func hostMatches(host, apex string) bool {
	return host == apex || strings.HasSuffix(host, "."+apex)
}

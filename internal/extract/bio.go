// Package extract locates biography text in fetched profile pages and pulls
// contact details out of it.
package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/social-leads/internal/model"
)

// BioStrategy attempts to locate the biography text in a page body.
// Strategies are pure; the second return reports whether the strategy's
// markup location was present at all.
type BioStrategy func(body []byte) (string, bool)

// bioStrategies returns the fixed-priority strategy list for a platform.
// The first strategy whose location exists wins, even with an empty bio.
func bioStrategies(platform model.Platform) []BioStrategy {
	switch platform {
	case model.PlatformTikTok:
		return []BioStrategy{tiktokRehydrationBio, metaDescriptionBio}
	default:
		return []BioStrategy{instagramProfileJSONBio, metaDescriptionBio}
	}
}

// ExtractBio runs the platform's strategies in order. A page with no
// recognizable bio location yields the empty string; that is not an error.
// The result is NFC-normalized so downstream matching is deterministic.
func ExtractBio(platform model.Platform, body []byte) string {
	for _, strategy := range bioStrategies(platform) {
		if bio, ok := strategy(body); ok {
			return norm.NFC.String(strings.TrimSpace(bio))
		}
	}
	return ""
}

// instagramProfileJSONBio reads the biography from the web profile info
// endpoint's JSON response.
func instagramProfileJSONBio(body []byte) (string, bool) {
	var payload struct {
		Data struct {
			User *struct {
				Biography string `json:"biography"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	if payload.Data.User == nil {
		return "", false
	}
	return payload.Data.User.Biography, true
}

// tiktokRehydrationBio reads the signature field from TikTok's embedded
// rehydration data script.
func tiktokRehydrationBio(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	script := doc.Find(`script#__UNIVERSAL_DATA_FOR_REHYDRATION__`).First().Text()
	if script == "" {
		return "", false
	}

	var payload struct {
		DefaultScope map[string]json.RawMessage `json:"__DEFAULT_SCOPE__"`
	}
	if err := json.Unmarshal([]byte(script), &payload); err != nil {
		return "", false
	}
	raw, ok := payload.DefaultScope["webapp.user-detail"]
	if !ok {
		return "", false
	}

	var detail struct {
		UserInfo struct {
			User struct {
				Signature string `json:"signature"`
			} `json:"user"`
		} `json:"userInfo"`
	}
	if err := json.Unmarshal(raw, &detail); err != nil {
		return "", false
	}
	return detail.UserInfo.User.Signature, true
}

// metaDescriptionBio falls back to the page's description meta tags.
func metaDescriptionBio(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	if desc, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok && desc != "" {
		return desc, true
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok && desc != "" {
		return desc, true
	}
	return "", false
}

// pageText strips an HTML body down to its visible text. Used as a contact
// scan fallback when no bio was found.
func pageText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return norm.NFC.String(strings.TrimSpace(doc.Text()))
}

package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/sells-group/social-leads/internal/model"
)

// Bounded email pattern: local part capped at 64, domain labels bounded,
// TLD 2-24 alpha. Permissive by design; version strings and similar noise
// are a known false-positive risk we accept.
var emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]{1,64}@(?:[A-Za-z0-9\-]{1,63}\.){1,8}[A-Za-z]{2,24}`)

// ExtractEmails finds email-shaped tokens in text, lowercased and
// deduplicated in first-seen order.
func ExtractEmails(text string) []model.EmailMatch {
	if text == "" {
		return nil
	}

	seen := make(map[string]bool)
	var matches []model.EmailMatch
	for _, raw := range emailRe.FindAllString(text, -1) {
		email := strings.ToLower(raw)
		if seen[email] {
			continue
		}
		seen[email] = true
		matches = append(matches, model.EmailMatch{Email: email})
	}
	return matches
}

var (
	// International candidates: explicit country code, then 6-12 more
	// digits with common separators.
	intlPhoneRe = regexp.MustCompile(`\+\d{1,3}(?:[\s().\-]{0,4}\d){6,12}`)

	// National candidates: 10-digit sequences in the usual display shapes.
	nationalPhoneRe = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
)

type phoneCandidate struct {
	start int
	text  string
}

// phoneCandidates scans left to right. International matches are collected
// first; national matches overlapping one are dropped so the same digits
// are not offered twice. The merged list is position-ordered, keeping
// output deterministic.
func phoneCandidates(text string) []phoneCandidate {
	var candidates []phoneCandidate
	intlSpans := intlPhoneRe.FindAllStringIndex(text, -1)
	for _, span := range intlSpans {
		candidates = append(candidates, phoneCandidate{start: span[0], text: text[span[0]:span[1]]})
	}

	for _, span := range nationalPhoneRe.FindAllStringIndex(text, -1) {
		if overlapsAny(span, intlSpans) {
			continue
		}
		candidates = append(candidates, phoneCandidate{start: span[0], text: text[span[0]:span[1]]})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].start < candidates[j].start })
	return candidates
}

func overlapsAny(span []int, spans [][]int) bool {
	for _, s := range spans {
		if span[0] < s[1] && s[0] < span[1] {
			return true
		}
	}
	return false
}

// ExtractPhones finds dialable phone numbers in text. Candidates carrying a
// country code parse as-is; bare national candidates parse against
// fallbackRegion. Accepted numbers render in E.164 and dedupe on that
// normalized digit string, first-seen order. Length-possible numbers are
// accepted rather than strictly valid ones so reserved display ranges
// (555-01xx and friends) survive extraction.
func ExtractPhones(text, fallbackRegion string) []model.PhoneMatch {
	if text == "" {
		return nil
	}
	if fallbackRegion == "" {
		fallbackRegion = "US"
	}

	seen := make(map[string]bool)
	var matches []model.PhoneMatch
	for _, cand := range phoneCandidates(text) {
		raw := strings.TrimSpace(cand.text)

		num, err := phonenumbers.Parse(raw, fallbackRegion)
		if err != nil {
			continue
		}
		if !phonenumbers.IsPossibleNumber(num) {
			continue
		}

		e164 := phonenumbers.Format(num, phonenumbers.E164)
		if seen[e164] {
			continue
		}
		seen[e164] = true

		phoneType := model.PhoneTypeNational
		if strings.HasPrefix(raw, "+") || strings.HasPrefix(raw, "00") {
			phoneType = model.PhoneTypeInternational
		}
		matches = append(matches, model.PhoneMatch{Number: e164, Type: phoneType})
	}
	return matches
}

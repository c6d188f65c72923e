package extract

import "github.com/sells-group/social-leads/internal/model"

// Result holds everything pulled from one page.
type Result struct {
	Bio    string
	Emails []model.EmailMatch
	Phones []model.PhoneMatch
}

// Extract locates the bio and scans it for contact details. When no bio
// location matched, the visible page text is scanned instead so contact
// info in ad-hoc markup is still picked up. Same input, same output:
// everything downstream of the strategy pick is a pure left-to-right scan.
func Extract(platform model.Platform, body []byte, fallbackRegion string) Result {
	bio := ExtractBio(platform, body)

	source := bio
	if source == "" {
		source = pageText(body)
	}

	return Result{
		Bio:    bio,
		Emails: ExtractEmails(source),
		Phones: ExtractPhones(source, fallbackRegion),
	}
}

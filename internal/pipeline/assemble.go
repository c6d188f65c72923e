package pipeline

import (
	"github.com/sells-group/social-leads/internal/extract"
	"github.com/sells-group/social-leads/internal/model"
)

// Assemble combines the canonical profile URL with extractor output into
// the final lead record. Pure and idempotent: identical inputs produce
// identical records. Missing bio, emails, or phones yield empty values,
// never an error; the collections serialize as [] rather than null.
func Assemble(target model.Target, res extract.Result) model.LeadRecord {
	emails := res.Emails
	if emails == nil {
		emails = []model.EmailMatch{}
	}
	phones := res.Phones
	if phones == nil {
		phones = []model.PhoneMatch{}
	}

	return model.LeadRecord{
		URL:    target.CanonicalProfileURL,
		Bio:    res.Bio,
		Emails: emails,
		Phone:  phones,
	}
}

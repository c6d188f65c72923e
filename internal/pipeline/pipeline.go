// Package pipeline wires normalization, fetching, and extraction into the
// profile scrape flow.
package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/social-leads/internal/config"
	"github.com/sells-group/social-leads/internal/extract"
	"github.com/sells-group/social-leads/internal/fetch"
	"github.com/sells-group/social-leads/internal/model"
	"github.com/sells-group/social-leads/internal/normalize"
	"github.com/sells-group/social-leads/internal/proxy"
	"github.com/sells-group/social-leads/internal/resilience"
)

// Fetcher fetches a normalized target. Satisfied by *fetch.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, target model.Target) (*fetch.Outcome, error)
}

// Pipeline runs profile scrapes. One Pipeline serves all requests; each
// Scrape call owns its own retry and proxy-tier state, so concurrent
// invocations never interfere.
type Pipeline struct {
	fetcher     Fetcher
	phoneRegion string
}

// New builds a Pipeline from configuration.
func New(cfg *config.Config) (*Pipeline, error) {
	selector, err := proxy.NewSelector(cfg.Proxy)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: proxy selector")
	}

	fetcher := fetch.New(selector, fetch.Options{
		Timeout: time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
		Retry:   resilience.FromScrapeConfig(cfg.Scrape.MaxAttempts, cfg.Scrape.BaseBackoffMs),
	})

	return &Pipeline{
		fetcher:     fetcher,
		phoneRegion: cfg.Scrape.PhoneRegion,
	}, nil
}

// NewWithFetcher builds a Pipeline around an existing fetcher. Used by
// tests to point the pipeline at a stub server.
func NewWithFetcher(fetcher Fetcher, phoneRegion string) *Pipeline {
	return &Pipeline{fetcher: fetcher, phoneRegion: phoneRegion}
}

// Scrape runs the full pipeline for one profile. Errors are always one of
// the taxonomy: *model.ValidationError, *model.ScraperError,
// *model.InternalError, or the caller's context error on cancellation.
func (p *Pipeline) Scrape(ctx context.Context, platform model.Platform, rawURL string) (rec model.LeadRecord, err error) {
	// Extraction runs over arbitrary remote markup; a crash there must
	// surface as InternalError, not take the process down.
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("pipeline panic recovered",
				zap.String("platform", string(platform)),
				zap.Any("panic", r),
			)
			err = &model.InternalError{Platform: platform, Err: eris.Errorf("panic: %v", r)}
		}
	}()

	target, err := normalize.Normalize(platform, rawURL)
	if err != nil {
		return model.LeadRecord{}, err
	}

	outcome, err := p.fetcher.Fetch(ctx, target)
	if err != nil {
		return model.LeadRecord{}, err
	}

	result := extract.Extract(platform, outcome.Body, p.phoneRegion)

	zap.L().Info("profile scraped",
		zap.String("platform", string(platform)),
		zap.String("username", target.Username),
		zap.Int("emails", len(result.Emails)),
		zap.Int("phones", len(result.Phones)),
	)

	return Assemble(target, result), nil
}

// APIErrorFor maps a pipeline error onto its wire form and HTTP status.
// Cancellation is not a failure and has no wire form; callers should check
// the context before calling this.
func APIErrorFor(err error, platform model.Platform) (int, model.APIError) {
	details := map[string]string{"platform": platform.DisplayName()}

	switch e := err.(type) {
	case *model.ValidationError:
		return http.StatusBadRequest, model.APIError{
			Code:    model.CodeValidationError,
			Message: e.Message,
			Details: details,
		}
	case *model.ScraperError:
		return http.StatusBadRequest, model.APIError{
			Code:    model.CodeScraperError,
			Message: e.Error(),
			Details: details,
		}
	default:
		return http.StatusInternalServerError, model.APIError{
			Code:    model.CodeInternalError,
			Message: "an unexpected error occurred",
			Details: details,
		}
	}
}

// Package proxy selects outbound proxy tiers for profile fetches.
package proxy

import (
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/social-leads/internal/config"
)

// Tier is one outbound proxy option, tried in declared order.
type Tier int

const (
	TierResidential Tier = iota
	TierDatacenter
	TierNone
)

func (t Tier) String() string {
	switch t {
	case TierResidential:
		return "residential"
	case TierDatacenter:
		return "datacenter"
	default:
		return "none"
	}
}

// Choice is a selected proxy for one fetch attempt. Endpoint is nil for
// TierNone (direct connection).
type Choice struct {
	Tier     Tier
	Endpoint *url.URL
}

// Selector yields proxy choices in fallback order over configured tiers.
// It is a pure decision over configuration and a tier cursor; the cursor is
// owned by the calling fetch loop, so concurrent invocations never share
// state.
type Selector struct {
	choices []Choice
}

// NewSelector builds a Selector from configured endpoints. Unconfigured
// tiers are skipped; the direct-connection tier is always last.
func NewSelector(cfg config.ProxyConfig) (*Selector, error) {
	var choices []Choice
	for _, tc := range []struct {
		tier     Tier
		endpoint string
	}{
		{TierResidential, cfg.ResidentialURL},
		{TierDatacenter, cfg.DatacenterURL},
	} {
		if tc.endpoint == "" {
			continue
		}
		u, err := url.Parse(tc.endpoint)
		if err != nil || u.Host == "" {
			return nil, eris.Errorf("proxy: invalid %s proxy url", tc.tier)
		}
		choices = append(choices, Choice{Tier: tc.tier, Endpoint: u})
	}
	choices = append(choices, Choice{Tier: TierNone})
	return &Selector{choices: choices}, nil
}

// Choose returns the proxy for the given tier cursor. Cursors past the last
// configured tier stay on the final (direct) tier; a tier is never revisited
// within one invocation.
func (s *Selector) Choose(cursor int) Choice {
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(s.choices) {
		cursor = len(s.choices) - 1
	}
	return s.choices[cursor]
}

// Tiers returns the number of configured tiers, including direct.
func (s *Selector) Tiers() int { return len(s.choices) }

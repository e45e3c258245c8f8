package pricing

import (
	"context"
	"fmt"

	"fitleague/internal/types"
)

// DefaultWarnThresholdPercent is the percentage of a tier limit at or above
// which a soft warning is raised. Kept as a named constant rather than an
// inline literal so deployments that want a different threshold can configure
// it through NewValidator.
const DefaultWarnThresholdPercent = 80

// Validation messages. These are part of the API contract: clients and tests
// assert on them verbatim, so changes here are breaking changes.
const (
	msgDurationTooSmall     = "Duration must be at least 1 day"
	msgParticipantsTooSmall = "Must have at least 1 participant"
	msgTierUnavailable      = "Invalid or inactive tier selected"
)

// Validator gatekeeps a candidate (tier, duration, participants) triple before
// it may reach the price calculator or the league orchestrator.
//
// It is a pure function of repository state and inputs: no side effects, no
// caching, safe for concurrent use.
type Validator struct {
	tiers         TierReader
	warnThreshold int // percent of a limit at which warnings start
}

// NewValidator creates a Validator over the given tier reader.
// warnThresholdPercent <= 0 selects DefaultWarnThresholdPercent.
func NewValidator(tiers TierReader, warnThresholdPercent int) *Validator {
	if warnThresholdPercent <= 0 {
		warnThresholdPercent = DefaultWarnThresholdPercent
	}
	return &Validator{tiers: tiers, warnThreshold: warnThresholdPercent}
}

// ValidateTierLimits checks a candidate league configuration against a tier's
// limits.
//
// Error order is deterministic: duration positivity, participant positivity,
// tier availability (early return -- no further checks are meaningful without
// a tier), duration limit, participant limit. Warnings fire at or above the
// configured percentage of each limit and never affect validity.
//
// The positivity checks re-validate what the input layer should already have
// enforced; no single layer is trusted alone.
//
// A non-nil error is returned only for infrastructure faults (repository
// unreachable). Business rejections are expressed in the result.
func (v *Validator) ValidateTierLimits(ctx context.Context, tierID int64, durationDays, participants int) (*types.TierValidationResult, error) {
	result := &types.TierValidationResult{Valid: true}

	if durationDays <= 0 {
		result.AddError(msgDurationTooSmall)
	}
	if participants <= 0 {
		result.AddError(msgParticipantsTooSmall)
	}

	cfg, err := v.tiers.GetTierConfig(ctx, tierID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		result.AddError(msgTierUnavailable)
		return result, nil
	}

	tier := cfg.Tier
	if durationDays > tier.MaxDays {
		result.AddError(fmt.Sprintf("Duration (%d days) exceeds tier limit (%d days)", durationDays, tier.MaxDays))
	}
	if participants > tier.MaxParticipants {
		result.AddError(fmt.Sprintf("Participants (%d) exceeds tier limit (%d)", participants, tier.MaxParticipants))
	}

	// Near-limit warnings. Integer arithmetic keeps the threshold exact:
	// value*100 >= limit*threshold is "value is at or above threshold% of limit".
	if durationDays > 0 && durationDays*100 >= tier.MaxDays*v.warnThreshold {
		result.AddWarning(fmt.Sprintf("Duration (%d days) is close to the tier limit (%d days)", durationDays, tier.MaxDays))
	}
	if participants > 0 && participants*100 >= tier.MaxParticipants*v.warnThreshold {
		result.AddWarning(fmt.Sprintf("Participants (%d) is close to the tier limit (%d)", participants, tier.MaxParticipants))
	}

	return result, nil
}

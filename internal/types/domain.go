// Package types defines the shared domain model for the fitleague platform:
// tiers, pricing configuration, price breakdowns, tier snapshots, leagues, and
// the error taxonomy used across all layers.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingType discriminates the two pricing models a tier can use.
// The two variants mutually exclude each other's computation path: a fixed
// tier ignores all dynamic rate fields, and a dynamic tier ignores FixedPrice.
type PricingType string

const (
	PricingFixed   PricingType = "fixed"
	PricingDynamic PricingType = "dynamic"
)

// DefaultCurrency is the only currency supported by the pricing engine.
// The PriceBreakdown carries it explicitly so that a future multi-currency
// design can flow it from the pricing configuration instead.
const DefaultCurrency = "INR"

// CurrencySymbol is the display symbol used in breakdown detail lines.
const CurrencySymbol = "₹"

// Tier is a purchasable league plan definition.
// Inactive tiers are invisible to new leagues but remain valid for leagues
// that already reference them through their snapshot.
type Tier struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	DisplayName     string      `json:"display_name"`
	Description     string      `json:"description"`
	MaxDays         int         `json:"max_days"`
	MaxParticipants int         `json:"max_participants"`
	PricingID       int64       `json:"pricing_id"`
	IsActive        bool        `json:"is_active"`
	IsFeatured      bool        `json:"is_featured"`
	DisplayOrder    int         `json:"display_order"`
	Features        FeatureList `json:"features"`
}

// PricingConfig holds the monetary rules for a tier.
//
// Exactly one variant applies, selected by Type:
//   - fixed:   FixedPrice is the subtotal; rate fields are ignored.
//   - dynamic: subtotal = BaseFee + days*PerDayRate + participants*PerParticipantRate.
//
// GSTPercentage applies uniformly to the computed subtotal regardless of type.
type PricingConfig struct {
	ID                 int64           `json:"id"`
	TierName           string          `json:"tier_name"`
	Type               PricingType     `json:"pricing_type"`
	FixedPrice         decimal.Decimal `json:"fixed_price"`
	BaseFee            decimal.Decimal `json:"base_fee"`
	PerDayRate         decimal.Decimal `json:"per_day_rate"`
	PerParticipantRate decimal.Decimal `json:"per_participant_rate"`
	GSTPercentage      decimal.Decimal `json:"gst_percentage"`
}

// TierConfig is a tier joined with its pricing configuration, as returned by
// the tier repository. It is the unit the validator and calculator operate on.
type TierConfig struct {
	Tier    Tier          `json:"tier"`
	Pricing PricingConfig `json:"pricing"`
}

// PriceBreakdown is the computed result of applying a pricing configuration to
// a specific (duration, participants) pair. It is ephemeral: never persisted on
// its own, only as part of a TierSnapshot.
//
// Invariants:
//
//	GSTAmount == round2(Subtotal * GSTPercentage / 100)
//	Total     == round2(Subtotal + GSTAmount)
//
// Rounding is half away from zero to 2 decimal places, applied once at each
// derived step, never compounded.
type PriceBreakdown struct {
	PricingType PricingType     `json:"pricing_type"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	GSTAmount   decimal.Decimal `json:"gst_amount"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	Details     []string        `json:"breakdown_details"`

	// Component amounts, populated for dynamic pricing only, so the UI and
	// audit log can show exactly how the total was derived.
	BaseFee          *decimal.Decimal `json:"base_fee,omitempty"`
	DaysCost         *decimal.Decimal `json:"days_cost,omitempty"`
	ParticipantsCost *decimal.Decimal `json:"participants_cost,omitempty"`
}

// TotalSubunits returns the total as an amount in the lowest currency subunit
// (paise for INR). Payment gateway orders must be created in subunits.
func (b *PriceBreakdown) TotalSubunits() int64 {
	return b.Total.Shift(2).IntPart()
}

// TierValidationResult is the ephemeral judgment of a candidate league
// configuration against a tier's limits.
//
// Valid is true iff Errors is empty. Warnings are soft near-limit signals and
// never affect validity. Error order is deterministic (duration checks before
// participant checks) so callers can assert on Errors[0].
type TierValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// AddError appends a hard violation and marks the result invalid.
func (r *TierValidationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Valid = false
}

// AddWarning appends a soft signal. Warnings never change validity.
func (r *TierValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// PricingSnapshot is the by-value copy of a PricingConfig stored inside a
// TierSnapshot. It carries no reference back to the live pricing row, so later
// admin edits can never alter what a league was promised.
type PricingSnapshot struct {
	Type               PricingType     `json:"pricing_type"`
	FixedPrice         decimal.Decimal `json:"fixed_price"`
	BaseFee            decimal.Decimal `json:"base_fee"`
	PerDayRate         decimal.Decimal `json:"per_day_rate"`
	PerParticipantRate decimal.Decimal `json:"per_participant_rate"`
	GSTPercentage      decimal.Decimal `json:"gst_percentage"`
}

// SnapshotRequest records the exact inputs the snapshot price was derived from.
type SnapshotRequest struct {
	DurationDays          int `json:"duration_days"`
	EstimatedParticipants int `json:"estimated_participants"`
}

// TierSnapshot is the immutable record attached to a league once its payment
// is verified. Every field is copied by value; it is the authoritative record
// of what the league owes and was promised, independent of later edits to the
// live tier or pricing configuration.
//
// Created exactly once per league; never mutated afterward.
type TierSnapshot struct {
	TierID          int64           `json:"tier_id"`
	TierName        string          `json:"tier_name"`
	DisplayName     string          `json:"display_name"`
	MaxDays         int             `json:"max_days"`
	MaxParticipants int             `json:"max_participants"`
	Features        []string        `json:"features"`
	Pricing         PricingSnapshot `json:"pricing"`
	Request         SnapshotRequest `json:"request"`
	Price           PriceBreakdown  `json:"price"`
	CreatedAt       time.Time       `json:"snapshot_created_at"`
}

// LeagueStatus models the league lifecycle as consumed by the payment flow.
//
// Transitions:
//
//	draft -> pending_payment -> active            (happy path)
//	pending_payment -> draft                      (payment abandoned/failed)
//	pending_payment -> cancelled                  (explicit cancellation)
//
// An active league always carries a tier snapshot; the repository enforces
// this by writing the snapshot and the status transition in one statement.
type LeagueStatus string

const (
	LeagueDraft          LeagueStatus = "draft"
	LeaguePendingPayment LeagueStatus = "pending_payment"
	LeagueActive         LeagueStatus = "active"
	LeagueCancelled      LeagueStatus = "cancelled"
	LeagueCompleted      LeagueStatus = "completed"
)

// League is the league row as seen by the payment flow. Roster, teams, and
// leaderboard concerns live elsewhere; this core only owns tier, price, and
// lifecycle state around payment.
type League struct {
	ID                    string          `json:"id"`
	HostID                string          `json:"host_id"`
	Name                  string          `json:"name"`
	TierID                int64           `json:"tier_id"`
	DurationDays          int             `json:"duration_days"`
	EstimatedParticipants int             `json:"estimated_participants"`
	Status                LeagueStatus    `json:"status"`
	AmountDue             decimal.Decimal `json:"amount_due"`
	OrderID               string          `json:"order_id,omitempty"`
	PaymentID             string          `json:"payment_id,omitempty"`
	Snapshot              *TierSnapshot   `json:"tier_snapshot,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// PaymentOrder is the gateway order created for a league's total amount.
// Amount is in the lowest currency subunit (paise).
type PaymentOrder struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Receipt   string    `json:"receipt"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

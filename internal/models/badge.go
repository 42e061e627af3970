package models

import "time"

// BadgeCategory groups related badges; each category shares a metric provider.
type BadgeCategory string

const (
	CategoryExploration  BadgeCategory = "EXPLORATION"
	CategoryContribution BadgeCategory = "CONTRIBUTION"
	CategoryQuality      BadgeCategory = "QUALITY"
	CategoryReview       BadgeCategory = "REVIEW"
	CategoryCommunity    BadgeCategory = "COMMUNITY"
	CategorySpecial      BadgeCategory = "SPECIAL"
	CategoryTenure       BadgeCategory = "TENURE"
)

// AllCategories returns every badge category in display order.
func AllCategories() []BadgeCategory {
	return []BadgeCategory{
		CategoryExploration,
		CategoryContribution,
		CategoryQuality,
		CategoryReview,
		CategoryCommunity,
		CategorySpecial,
		CategoryTenure,
	}
}

// CriteriaType selects the evaluation strategy for a badge.
type CriteriaType string

const (
	// CriteriaNumericThreshold awards when a named metric reaches criteria_value.
	CriteriaNumericThreshold CriteriaType = "NUMERIC_THRESHOLD"
	// CriteriaPredicateSet awards when every named predicate holds for the user.
	CriteriaPredicateSet CriteriaType = "PREDICATE_SET"
	// CriteriaGlobalRank awards once, on signup confirmation, while the
	// global ordinal is within criteria_value.
	CriteriaGlobalRank CriteriaType = "GLOBAL_RANK"
)

// Badge is one immutable catalog entry. Rows are created by deployment-time
// migrations only; corrections ship as new migrations, never in-place edits.
type Badge struct {
	ID           int64         `json:"id" db:"id"`
	Slug         string        `json:"slug" db:"slug"`
	Name         string        `json:"name" db:"name"`
	Description  string        `json:"description" db:"description"`
	Icon         string        `json:"icon" db:"icon"`
	Color        string        `json:"color" db:"color"`
	Category     BadgeCategory `json:"category" db:"category"`
	CriteriaType CriteriaType  `json:"criteria_type" db:"criteria_type"`

	// Metric names the counter this badge is keyed on within its category
	// (e.g. "location_visits"). Empty for predicate-set badges.
	Metric        string `json:"metric,omitempty" db:"metric"`
	CriteriaValue *int64 `json:"criteria_value,omitempty" db:"criteria_value"`

	// Ratio guard for review-quality badges: the badge is withheld until the
	// user has at least MinRatioVotes votes and a helpful ratio >= MinRatio.
	// NULL columns fall back to the configured defaults.
	MinRatio      *float64 `json:"min_ratio,omitempty" db:"min_ratio"`
	MinRatioVotes *int     `json:"min_ratio_votes,omitempty" db:"min_ratio_votes"`

	// Predicates lists registry names for predicate-set badges.
	Predicates []string `json:"predicates,omitempty" db:"predicates"`

	Tier      int       `json:"tier" db:"tier"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RequiredValue returns the numeric threshold, or 0 for predicate sets.
func (b *Badge) RequiredValue() int64 {
	if b.CriteriaValue == nil {
		return 0
	}
	return *b.CriteriaValue
}

// Award is one ledger row: proof that a user earned a badge. The
// (user_id, badge_id) pair is unique at the storage level; rows are never
// updated and are deleted only by the account-deletion cascade.
type Award struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	BadgeID   int64     `json:"badge_id" db:"badge_id"`
	AwardedAt time.Time `json:"awarded_at" db:"awarded_at"`
}

// AwardOutcome is the result of an idempotent award attempt.
type AwardOutcome int

const (
	// Awarded means this call inserted the ledger row.
	Awarded AwardOutcome = iota
	// AlreadyHeld means the row already existed; treated as success, not conflict.
	AlreadyHeld
)

// EarnedBadge pairs a catalog entry with the time the user earned it.
type EarnedBadge struct {
	Badge     *Badge    `json:"badge"`
	AwardedAt time.Time `json:"awarded_at"`
}

// BadgeProgress is the progress-bar view of an unearned numeric badge.
type BadgeProgress struct {
	Badge         *Badge `json:"badge"`
	CurrentValue  int64  `json:"current_value"`
	RequiredValue int64  `json:"required_value"`
	Percentage    int    `json:"percentage"`
}

// CategoryProgress is the denormalized per-(user, category) view held by the
// progress cache. Never authoritative: always reconstructible from the
// catalog, the award ledger and the metric providers.
type CategoryProgress struct {
	Category   BadgeCategory    `json:"category"`
	Earned     []*EarnedBadge   `json:"earned"`
	InProgress []*BadgeProgress `json:"in_progress"`
	Locked     []*Badge         `json:"locked"`
}

// PinnedSelection is the user's ordered choice of up to three earned badges
// for profile display. The whole list is replaced on every write.
type PinnedSelection struct {
	UserID    int64     `json:"user_id"`
	BadgeIDs  []int64   `json:"badge_ids"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaxPinnedBadges caps the pinned selection length.
const MaxPinnedBadges = 3

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "ACTIVE"
	SubscriptionStatusTrialing          SubscriptionStatus = "TRIALING"
	SubscriptionStatusPastDue           SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusUnpaid            SubscriptionStatus = "UNPAID"
	SubscriptionStatusCanceled          SubscriptionStatus = "CANCELED"
	SubscriptionStatusIncomplete        SubscriptionStatus = "INCOMPLETE"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "INCOMPLETE_EXPIRED"
	SubscriptionStatusPaused            SubscriptionStatus = "PAUSED"
)

// NormalizeSubscriptionStatus maps a processor status string ("past_due") to
// the stored upper-case form. Unknown values are kept, upper-cased.
func NormalizeSubscriptionStatus(s string) SubscriptionStatus {
	return SubscriptionStatus(strings.ToUpper(strings.TrimSpace(s)))
}

// IsTerminal reports whether later processor events may no longer change the
// subscription.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCanceled
}

func (s SubscriptionStatus) String() string {
	return string(s)
}

type Subscription struct {
	ID                 uuid.UUID          `json:"id"`
	ExternalID         string             `json:"external_id"`
	CustomerID         uuid.UUID          `json:"customer_id"`
	Status             SubscriptionStatus `json:"status"`
	PlanID             string             `json:"plan_id"`
	PlanName           string             `json:"plan_name"`
	PlanPrice          Money              `json:"plan_price"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// SubscriptionUpdate carries the fields a processor update event may change.
type SubscriptionUpdate struct {
	Status             SubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
}

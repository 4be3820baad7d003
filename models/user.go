// models/user.go
package models

import (
	"time"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
	PlanElite   Plan = "elite"
)

// PaidPlanDuration is how long a paid plan lasts after activation.
const PaidPlanDuration = 30 * 24 * time.Hour

// ParsePlan validates a plan name.
func ParsePlan(s string) (Plan, bool) {
	switch p := Plan(s); p {
	case PlanFree, PlanPremium, PlanElite:
		return p, true
	}
	return "", false
}

// ModuleLimit is the number of modules a plan may keep active at once.
func (p Plan) ModuleLimit() int {
	switch p {
	case PlanPremium:
		return 3
	case PlanElite:
		return 999
	default:
		return 1
	}
}

type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"not null;size:100" json:"name"`
	Email         string     `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password      string     `gorm:"not null" json:"-"`
	Plan          Plan       `gorm:"not null;default:'free';size:20" json:"plan"`
	PlanExpiresAt *time.Time `json:"plan_expires_at"`
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	IsAdmin       bool       `gorm:"default:false" json:"is_admin"`

	// Timestamps
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login"`
}

// EffectivePlan downgrades an expired paid plan to free.
func (u *User) EffectivePlan(now time.Time) Plan {
	if u.Plan == PlanFree || u.Plan == "" {
		return PlanFree
	}
	if u.PlanExpiresAt != nil && !now.Before(*u.PlanExpiresAt) {
		return PlanFree
	}
	return u.Plan
}

// SetPlan changes the plan and its expiry. Paid plans run for PaidPlanDuration.
func (u *User) SetPlan(p Plan, now time.Time) {
	u.Plan = p
	if p == PlanFree {
		u.PlanExpiresAt = nil
		return
	}
	expires := now.Add(PaidPlanDuration)
	u.PlanExpiresAt = &expires
}

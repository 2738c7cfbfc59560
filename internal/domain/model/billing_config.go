package model

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host's zoneinfo

	"billing-reminder-bot/internal/domain"

	"github.com/go-playground/validator/v10"
)

// FoldPolicy selects how successive payments combine into coverage.
type FoldPolicy string

const (
	// FoldLatest derives every payment's start anchor from its own paid date,
	// so the final coverage depends only on the most recent payment.
	FoldLatest FoldPolicy = "latest"
	// FoldStacked chains each payment onto the coverage left by the previous ones.
	FoldStacked FoldPolicy = "stacked"
)

// BillingConfig is the single authoritative billing setting of the deployment.
type BillingConfig struct {
	BillingDay    int        `yaml:"billing_day" json:"billing_day" validate:"min=1,max=28"`
	Timezone      string     `yaml:"timezone" json:"timezone" validate:"required,timezone"`
	MonthlyAmount int64      `yaml:"monthly_amount" json:"monthly_amount" validate:"gte=0"`
	ReminderTime  string     `yaml:"reminder_time" json:"reminder_time" validate:"required,datetime=15:04"`
	FoldPolicy    FoldPolicy `yaml:"fold_policy" json:"fold_policy" validate:"omitempty,oneof=latest stacked"`
	UpdatedAt     time.Time  `yaml:"-" json:"updated_at"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultBillingConfig is used when nothing has been persisted yet.
func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		BillingDay:    1,
		Timezone:      "UTC",
		MonthlyAmount: 0,
		ReminderTime:  "10:00",
		FoldPolicy:    FoldLatest,
	}
}

// Validate maps validator failures to domain sentinels so callers can branch
// with errors.Is.
func (c BillingConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	fe := verrs[0]
	switch fe.Field() {
	case "BillingDay":
		return fmt.Errorf("%w: got %d", domain.ErrInvalidBillingDay, c.BillingDay)
	case "Timezone":
		return fmt.Errorf("%w: %q", domain.ErrInvalidTimezone, c.Timezone)
	case "ReminderTime":
		return fmt.Errorf("%w: %q", domain.ErrInvalidReminderTime, c.ReminderTime)
	default:
		return fmt.Errorf("%w: %s failed %s", domain.ErrInvalidArgument, fe.Field(), fe.Tag())
	}
}

// LoadLocation resolves the configured IANA zone.
func (c BillingConfig) LoadLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTimezone, c.Timezone)
	}
	return loc, nil
}

// Location is LoadLocation with a UTC fallback. The settings holder only
// accepts configs whose zone resolves.
func (c BillingConfig) Location() *time.Location {
	loc, err := c.LoadLocation()
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReminderClock returns the hour and minute of the daily reminder.
func (c BillingConfig) ReminderClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.ReminderTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", domain.ErrInvalidReminderTime, c.ReminderTime)
	}
	return t.Hour(), t.Minute(), nil
}

// Policy returns the effective fold policy; empty means FoldLatest.
func (c BillingConfig) Policy() FoldPolicy {
	if c.FoldPolicy == "" {
		return FoldLatest
	}
	return c.FoldPolicy
}

// BillingPatch carries a partial admin update. Nil fields are left unchanged.
type BillingPatch struct {
	BillingDay    *int        `json:"billing_day,omitempty"`
	Timezone      *string     `json:"timezone,omitempty"`
	MonthlyAmount *int64      `json:"monthly_amount,omitempty"`
	ReminderTime  *string     `json:"reminder_time,omitempty"`
	FoldPolicy    *FoldPolicy `json:"fold_policy,omitempty"`
}

// Apply returns a copy of c with the patch applied. The result is not validated.
func (p BillingPatch) Apply(c BillingConfig) BillingConfig {
	if p.BillingDay != nil {
		c.BillingDay = *p.BillingDay
	}
	if p.Timezone != nil {
		c.Timezone = *p.Timezone
	}
	if p.MonthlyAmount != nil {
		c.MonthlyAmount = *p.MonthlyAmount
	}
	if p.ReminderTime != nil {
		c.ReminderTime = *p.ReminderTime
	}
	if p.FoldPolicy != nil {
		c.FoldPolicy = *p.FoldPolicy
	}
	return c
}

// IsEmpty reports whether the patch changes nothing.
func (p BillingPatch) IsEmpty() bool {
	return p.BillingDay == nil && p.Timezone == nil && p.MonthlyAmount == nil &&
		p.ReminderTime == nil && p.FoldPolicy == nil
}

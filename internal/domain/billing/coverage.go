package billing

import (
	"fmt"
	"sort"
	"time"

	"billing-reminder-bot/internal/domain"
	"billing-reminder-bot/internal/domain/model"
)

// Coverage is the derived billing state of one user. It is never stored.
type Coverage struct {
	CoveredThrough *time.Time // nil when the user has no payments
	NextDue        time.Time
}

// IsDue reports whether a reminder is owed on today.
func (c Coverage) IsDue(today time.Time) bool {
	return !DateOf(today).Before(c.NextDue)
}

// Params are the config values a coverage computation reads.
type Params struct {
	BillingDay int
	Location   *time.Location
	Policy     model.FoldPolicy
}

// ParamsFrom extracts Params from a validated config.
func ParamsFrom(cfg model.BillingConfig) Params {
	return Params{
		BillingDay: cfg.BillingDay,
		Location:   cfg.Location(),
		Policy:     cfg.Policy(),
	}
}

// Compute folds payments (any order) into a Coverage. today is a civil date in
// the billing timezone and is only consulted when there are no payments.
func Compute(payments []*model.Payment, p Params, today time.Time) (Coverage, error) {
	ordered := make([]*model.Payment, 0, len(payments))
	for _, pay := range payments {
		if pay == nil {
			return Coverage{}, fmt.Errorf("%w: nil payment", domain.ErrInvalidArgument)
		}
		if pay.PaidAt.IsZero() {
			return Coverage{}, fmt.Errorf("%w: payment %s", domain.ErrMalformedTimestamp, pay.ID)
		}
		if pay.Months <= 0 {
			return Coverage{}, fmt.Errorf("%w: payment %s has %d months", domain.ErrInvalidArgument, pay.ID, pay.Months)
		}
		ordered = append(ordered, pay)
	}

	if len(ordered) == 0 {
		td := DateOf(today)
		return Coverage{NextDue: AnchorInMonth(td.Year(), td.Month(), p.BillingDay)}, nil
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PaidAt.Before(ordered[j].PaidAt)
	})

	first := LocalDate(ordered[0].PaidAt, p.Location)
	covered := date(first.Year(), first.Month(), 1)
	for i, pay := range ordered {
		paid := LocalDate(pay.PaidAt, p.Location)
		if p.Policy == model.FoldStacked && i > 0 {
			covered = CoverageEndFromStart(NextBillingStart(covered, p.BillingDay), pay.Months, p.BillingDay)
			continue
		}
		covered = CoverageUntilForPayment(paid, pay.Months, p.BillingDay)
	}

	return Coverage{
		CoveredThrough: &covered,
		NextDue:        NextBillingStart(covered, p.BillingDay),
	}, nil
}

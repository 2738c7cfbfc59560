package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"billing-reminder-bot/internal/domain"

	"github.com/google/uuid"
)

// Payment records a user's asserted payment covering Months billing periods.
// Amount is stored in minor units to avoid float errors.
type Payment struct {
	ID             string // UUID
	UserID         int64
	Amount         int64
	Months         int
	ProofReference string // opaque token, e.g. a Telegram file_id
	PaidAt         time.Time
}

func NewPayment(userID int64, amount int64, months int, proofRef string, paidAt time.Time) (*Payment, error) {
	if userID <= 0 || months <= 0 || amount < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if paidAt.IsZero() {
		return nil, domain.ErrMalformedTimestamp
	}
	return &Payment{
		ID:             uuid.NewString(),
		UserID:         userID,
		Amount:         amount,
		Months:         months,
		ProofReference: proofRef,
		PaidAt:         paidAt.UTC(),
	}, nil
}

// FormatMoney renders minor units with two decimals, e.g. 12345 -> "123.45".
func FormatMoney(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// ParseMoney accepts "123", "123.4" or "123.45" and returns minor units.
func ParseMoney(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" || strings.HasPrefix(s, "-") {
		return 0, domain.ErrInvalidArgument
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidArgument
	}
	var f int64
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, domain.ErrInvalidArgument
		}
		if len(frac) == 1 {
			frac += "0"
		}
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, domain.ErrInvalidArgument
		}
	}
	return w*100 + f, nil
}

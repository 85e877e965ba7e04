package wire

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"

	"github.com/DoyleJ11/deposit-auction-client/pkg/types"
)

// NormalizeStatus maps a raw auction or lot status onto active, closed or
// pending. Unknown and empty values become pending.
func NormalizeStatus(status string) types.Status {
	switch cases.Fold().String(strings.TrimSpace(status)) {
	case "open", "active":
		return types.StatusActive
	case "closed", "finished", "ended":
		return types.StatusClosed
	case "pending", "waiting", "scheduled":
		return types.StatusPending
	default:
		return types.StatusPending
	}
}

// NormalizeOfferStatus maps a raw offer status; unknown values become pending.
func NormalizeOfferStatus(status string) types.OfferStatus {
	switch cases.Fold().String(strings.TrimSpace(status)) {
	case "accepted":
		return types.OfferAccepted
	case "rejected":
		return types.OfferRejected
	default:
		return types.OfferPending
	}
}

// Number coerces a JSON number or numeric string. It returns 0 and false for
// anything that is not a finite number.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case string:
		v = strings.TrimSpace(x)
	case bool:
		return 0, false
	}
	if v == nil || v == "" {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Timestamp coerces a date string (or unix seconds) and returns fallback and
// false when it cannot be parsed.
func Timestamp(v any, fallback time.Time) (time.Time, bool) {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	if v == nil || v == "" {
		return fallback, false
	}
	t, err := cast.ToTimeE(v)
	if err != nil || t.IsZero() {
		return fallback, false
	}
	return t.UTC(), true
}

// Text coerces ids and labels that the backend may send as numbers.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		return fmt.Sprint(t)
	}
	return cast.ToString(v)
}

// Package expiry derives display-ready expiration status from a product's
// batch list. All functions are pure: they never read the wall clock and
// never mutate their inputs.
package expiry

import (
	"math"
	"sort"
	"time"
)

// Tier orders status severity. Higher urgency sorts first in risk views.
type Tier string

const (
	TierNeutral  Tier = "neutral"
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
	TierSafe     Tier = "safe"
)

// Status is the display classification of a product's nearest batch expiry.
type Status struct {
	Label string `json:"etiqueta"`
	Tier  Tier   `json:"tier"`
}

// Batch is the minimal view of a lote needed for status evaluation.
type Batch struct {
	ExpiresAt time.Time
	Active    bool
}

const avgDaysPerMonth = 30.44

// NearestActiveExpiry returns the earliest expiry date among active batches,
// or nil when no batch is active. Ties keep the first occurrence.
func NearestActiveExpiry(batches []Batch) *time.Time {
	var nearest *time.Time
	for i := range batches {
		if !batches[i].Active {
			continue
		}
		if nearest == nil || batches[i].ExpiresAt.Before(*nearest) {
			d := batches[i].ExpiresAt
			nearest = &d
		}
	}
	return nearest
}

// Classify maps an expiry date to its status label against the supplied now.
// Day counting uses the calendar-day ceiling of the raw time difference, so a
// batch expiring later today still counts as day 0. Boundaries are inclusive
// on the more urgent tier: day 30 is "Crítico", day 90 is "Atenção".
func Classify(expiresAt *time.Time, now time.Time) Status {
	if expiresAt == nil {
		return Status{Label: "Sem Lotes", Tier: TierNeutral}
	}
	days := DaysUntil(*expiresAt, now)
	switch {
	case days < 0:
		return Status{Label: "Vencido", Tier: TierCritical}
	case days <= 30:
		return Status{Label: "Crítico", Tier: TierHigh}
	case days <= 90:
		return Status{Label: "Atenção", Tier: TierMedium}
	default:
		return Status{Label: "Seguro", Tier: TierSafe}
	}
}

// DaysUntil counts whole days from now to the given date, rounding up.
func DaysUntil(date, now time.Time) int {
	return int(math.Ceil(date.Sub(now).Hours() / 24))
}

// Reconciliation compares declared stock against the sum of batch quantities.
type Reconciliation struct {
	Percent   float64 `json:"percentual"`
	Shortfall int     `json:"divergencia"`
}

// Reconcile computes the reconciliation percentage and shortfall between a
// product's declared stock and its registered batch total. A product with
// nothing declared and nothing batched is fully reconciled.
func Reconcile(declared, batched int) Reconciliation {
	shortfall := declared - batched
	if shortfall < 0 {
		shortfall = 0
	}
	var percent float64
	switch {
	case declared > 0:
		percent = math.Min(100, float64(batched)/float64(declared)*100)
	case batched == 0:
		percent = 100
	}
	return Reconciliation{Percent: percent, Shortfall: shortfall}
}

// Discrepancy is one row of the "top discrepancies" risk view.
type Discrepancy struct {
	CodigoLM      int64   `json:"codigo_lm"`
	NomeProduto   string  `json:"nome_produto"`
	Percent       float64 `json:"percentual"`
	Shortfall     int     `json:"divergencia"`
	HasExpiryRisk bool    `json:"risco_vencimento"`
}

// SortDiscrepancies orders rows with expiry-risk products first, then by
// shortfall descending. The sort is stable: equal keys keep input order.
func SortDiscrepancies(rows []Discrepancy) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].HasExpiryRisk != rows[j].HasExpiryRisk {
			return rows[i].HasExpiryRisk
		}
		return rows[i].Shortfall > rows[j].Shortfall
	})
}

// HasExpiryRisk reports whether any active batch classifies as high or
// critical against the supplied now.
func HasExpiryRisk(batches []Batch, now time.Time) bool {
	for i := range batches {
		if !batches[i].Active {
			continue
		}
		d := batches[i].ExpiresAt
		tier := Classify(&d, now).Tier
		if tier == TierHigh || tier == TierCritical {
			return true
		}
	}
	return false
}

// MonthSpan estimates the shelf life in months between manufacture and
// expiry using the 30.44 average-days-per-month division, clamped to zero.
//
// Its companion ExpiryFromSpan uses calendar month arithmetic instead. The
// two directions are intentionally asymmetric: the span is an averaged
// convenience figure shown in forms, the inverse is an exact auto-fill date.
// Round-tripping one through the other is not identity.
func MonthSpan(manufactured, expires time.Time) int {
	days := expires.Sub(manufactured).Hours() / 24
	months := int(math.Floor(days / avgDaysPerMonth))
	if months < 0 {
		return 0
	}
	return months
}

// ExpiryFromSpan adds the given number of calendar months to the
// manufacture date. See MonthSpan for the asymmetry note.
func ExpiryFromSpan(manufactured time.Time, months int) time.Time {
	return manufactured.AddDate(0, months, 0)
}

// ValidateDates enforces the registration invariant that a batch expires
// strictly after it was manufactured.
func ValidateDates(manufactured, expires time.Time) bool {
	return expires.After(manufactured)
}

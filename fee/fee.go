// Package fee computes transaction fees in either a fixed or a
// size-and-priority-based dynamic mode. New relative to the teacher
// (which has no fee concept at all — its transactions always pay a flat
// zero fee); grounded on spec.md §4.8 and modeled on the teacher's other
// small, stateless "configuration record in, value out" components
// (e.g. proof.go's ProofOfWork).
package fee

import (
	"github.com/duniad/duniad/amount"
	"github.com/duniad/duniad/errkind"
)

// Priority multiplies the dynamic base rate.
type Priority int

const (
	Low    Priority = 1
	Normal Priority = 2
	High   Priority = 4
	Urgent Priority = 8
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	case Urgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// ParsePriority maps a CLI --priority flag value to a Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return Low, nil
	case "normal":
		return Normal, nil
	case "high":
		return High, nil
	case "urgent":
		return Urgent, nil
	default:
		return 0, errkind.New(errkind.Config, "unknown priority %q", s)
	}
}

// Mode selects how Engine.Estimate computes a fee.
type Mode int

const (
	Fixed Mode = iota
	Dynamic
)

// ReferenceSize is the transaction size, in bytes, used for the reported
// per-priority estimates in feestatus (spec.md §4.8).
const ReferenceSize = 250

// Engine holds the live fee configuration. Grounded on spec.md §4.8's
// `{mode, base_rate, min_fee, max_fee, enabled}` options record.
type Engine struct {
	Mode     Mode
	FixedFee amount.Amount
	BaseRate amount.Amount
	MinFee   amount.Amount
	MaxFee   amount.Amount
	Enabled  bool
}

// NewFixed builds an Engine charging exactly n satoshis per transaction.
func NewFixed(n amount.Amount) *Engine {
	return &Engine{Mode: Fixed, FixedFee: n, Enabled: true}
}

// NewDynamic builds an Engine charging baseRate × priority × size_bytes,
// clamped to [minFee, maxFee].
func NewDynamic(baseRate, minFee, maxFee amount.Amount) *Engine {
	return &Engine{Mode: Dynamic, BaseRate: baseRate, MinFee: minFee, MaxFee: maxFee, Enabled: true}
}

// Estimate computes the fee for a transaction of sizeBytes at the given
// priority. In Fixed mode, priority and size are ignored.
func (e *Engine) Estimate(priority Priority, sizeBytes int) (amount.Amount, error) {
	if !e.Enabled {
		return 0, nil
	}

	if e.Mode == Fixed {
		return e.FixedFee, nil
	}

	perByte, err := e.BaseRate.Mul(int64(priority))
	if err != nil {
		return 0, errkind.Wrap(errkind.Config, err, "computing dynamic per-byte rate")
	}
	raw, err := perByte.Mul(int64(sizeBytes))
	if err != nil {
		return 0, errkind.Wrap(errkind.Config, err, "computing dynamic fee")
	}

	if raw < e.MinFee {
		return e.MinFee, nil
	}
	if raw > e.MaxFee {
		return e.MaxFee, nil
	}
	return raw, nil
}

// Status summarizes the engine's configuration and per-priority
// estimates at ReferenceSize, for the `feestatus` CLI command.
type Status struct {
	Mode      Mode
	FixedFee  amount.Amount
	Estimates map[Priority]amount.Amount
}

// ReportStatus builds a Status snapshot.
func (e *Engine) ReportStatus() (Status, error) {
	estimates := make(map[Priority]amount.Amount, 4)
	for _, p := range []Priority{Low, Normal, High, Urgent} {
		est, err := e.Estimate(p, ReferenceSize)
		if err != nil {
			return Status{}, err
		}
		estimates[p] = est
	}
	return Status{Mode: e.Mode, FixedFee: e.FixedFee, Estimates: estimates}, nil
}

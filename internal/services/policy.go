package services

import (
	"fmt"
	"math"
	"time"

	"github.com/ksultani/go-dinebot-backend/internal/config"
	"github.com/ksultani/go-dinebot-backend/internal/domain"
)

// PolicyDecision is the deterministic outcome of running a complaint through
// the compensation table.
type PolicyDecision struct {
	// Escalate hands the issue to a human queue instead of auto-resolving.
	Escalate bool
	// Compensation is the refund or credit amount; zero means an apology
	// without money attached.
	Compensation float64
	// Resolution is the internal record of what was decided.
	Resolution string
}

// PolicyEngine applies the complaint compensation table. All comparisons are
// against the order total at submission time; ceilings are inclusive.
//
// The table:
//   - missing_item: full refund up to MaxAutoRefund, otherwise escalate.
//   - late_delivery: a credit of LateCreditPct of the total, capped at
//     LateCreditCap, once the delay exceeds LateDelayMinimum. Late orders
//     never escalate; a delay inside the window gets an apology only.
//   - wrong_order: full refund up to WrongOrderCeiling, otherwise escalate.
//   - quality: half refund up to QualityCeiling, otherwise escalate.
//   - anything else (refund_request included): escalate.
type PolicyEngine struct {
	Cfg config.PolicyConfig
}

// Decide runs one complaint through the table. delay is how far past the
// promised ready time the order is; it only matters for late_delivery.
func (e PolicyEngine) Decide(issueType domain.IssueType, orderTotal float64, delay time.Duration) PolicyDecision {
	switch issueType {
	case domain.IssueMissingItem:
		if orderTotal <= e.Cfg.MaxAutoRefund {
			return PolicyDecision{
				Compensation: domain.Round2(orderTotal),
				Resolution:   fmt.Sprintf("full refund of %.2f for missing item", orderTotal),
			}
		}
		return escalated("missing item on order above auto-refund ceiling")

	case domain.IssueLateDelivery:
		if delay > e.Cfg.LateDelayMinimum {
			credit := domain.Round2(math.Min(e.Cfg.LateCreditPct*orderTotal, e.Cfg.LateCreditCap))
			return PolicyDecision{
				Compensation: credit,
				Resolution:   fmt.Sprintf("credit of %.2f for %d minute delay", credit, int(delay.Minutes())),
			}
		}
		return PolicyDecision{Resolution: "delay within promised window, apology only"}

	case domain.IssueWrongOrder:
		if orderTotal <= e.Cfg.WrongOrderCeiling {
			return PolicyDecision{
				Compensation: domain.Round2(orderTotal),
				Resolution:   fmt.Sprintf("full refund of %.2f for wrong order", orderTotal),
			}
		}
		return escalated("wrong order above refund ceiling")

	case domain.IssueQuality:
		if orderTotal <= e.Cfg.QualityCeiling {
			half := domain.Round2(orderTotal / 2)
			return PolicyDecision{
				Compensation: half,
				Resolution:   fmt.Sprintf("half refund of %.2f for quality issue", half),
			}
		}
		return escalated("quality issue above half-refund ceiling")

	default:
		return escalated("no automatic rule for issue type")
	}
}

func escalated(reason string) PolicyDecision {
	return PolicyDecision{Escalate: true, Resolution: "escalated: " + reason}
}

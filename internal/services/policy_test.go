package services

import (
	"testing"
	"time"

	"github.com/ksultani/go-dinebot-backend/internal/config"
	"github.com/ksultani/go-dinebot-backend/internal/domain"
)

func testPolicy() PolicyEngine {
	return PolicyEngine{Cfg: config.PolicyConfig{
		MaxAutoRefund:     50,
		WrongOrderCeiling: 75,
		QualityCeiling:    30,
		LateDelayMinimum:  30 * time.Minute,
		LateCreditPct:     0.20,
		LateCreditCap:     25,
	}}
}

func TestPolicyDecide_Table(t *testing.T) {
	e := testPolicy()
	cases := []struct {
		name      string
		issueType domain.IssueType
		total     float64
		delay     time.Duration
		escalate  bool
		comp      float64
	}{
		{"missing item under ceiling", domain.IssueMissingItem, 50.00, 0, false, 50.00},
		{"missing item over ceiling", domain.IssueMissingItem, 50.01, 0, true, 0},
		{"late beyond window", domain.IssueLateDelivery, 40.00, 45 * time.Minute, false, 8.00},
		{"late credit capped", domain.IssueLateDelivery, 200.00, 45 * time.Minute, false, 25.00},
		{"late inside window", domain.IssueLateDelivery, 40.00, 30 * time.Minute, false, 0},
		{"wrong order under ceiling", domain.IssueWrongOrder, 75.00, 0, false, 75.00},
		{"wrong order over ceiling", domain.IssueWrongOrder, 75.01, 0, true, 0},
		{"quality half refund", domain.IssueQuality, 30.00, 0, false, 15.00},
		{"quality over ceiling", domain.IssueQuality, 30.01, 0, true, 0},
		{"refund request always escalates", domain.IssueRefundRequest, 5.00, 0, true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := e.Decide(tc.issueType, tc.total, tc.delay)
			if d.Escalate != tc.escalate {
				t.Errorf("escalate = %v; want %v", d.Escalate, tc.escalate)
			}
			if d.Compensation != tc.comp {
				t.Errorf("compensation = %v; want %v", d.Compensation, tc.comp)
			}
			if d.Resolution == "" {
				t.Error("decision must always carry a resolution record")
			}
		})
	}
}

func TestPolicyDecide_LateNeverEscalates(t *testing.T) {
	e := testPolicy()
	for _, total := range []float64{1, 100, 10000} {
		for _, delay := range []time.Duration{0, time.Hour, 24 * time.Hour} {
			if d := e.Decide(domain.IssueLateDelivery, total, delay); d.Escalate {
				t.Fatalf("late delivery escalated at total=%v delay=%v", total, delay)
			}
		}
	}
}

func TestClassifyIssueType(t *testing.T) {
	cases := map[string]domain.IssueType{
		"my fries are missing from the bag":   domain.IssueMissingItem,
		"this is the wrong order entirely":    domain.IssueWrongOrder,
		"my order is 40 minutes late":         domain.IssueLateDelivery,
		"the burger was cold and soggy":       domain.IssueQuality,
		"i want a refund":                     domain.IssueRefundRequest,
		"الطلب ناقص":                          domain.IssueMissingItem,
		"something unrelated about the store": domain.IssueRefundRequest,
	}
	for desc, want := range cases {
		if got := ClassifyIssueType(desc); got != want {
			t.Errorf("ClassifyIssueType(%q) = %s; want %s", desc, got, want)
		}
	}
}

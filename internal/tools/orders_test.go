package tools

import (
	"testing"
	"time"

	"github.com/finchdesk/finch/internal/log"
	"github.com/finchdesk/finch/internal/order"
)

func newTestOrders(t *testing.T) *Orders {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	repo := order.NewStore(order.Fixtures(now()), now)
	ot, err := NewOrders(repo, log.NewNop())
	if err != nil {
		t.Fatalf("NewOrders() error = %v", err)
	}
	return ot
}

func TestNewOrders(t *testing.T) {
	t.Run("requires repository", func(t *testing.T) {
		if _, err := NewOrders(nil, log.NewNop()); err == nil {
			t.Error("NewOrders(nil repo) = nil error, want error")
		}
	})
	t.Run("requires logger", func(t *testing.T) {
		repo := order.NewStore(nil, nil)
		if _, err := NewOrders(repo, nil); err == nil {
			t.Error("NewOrders(nil logger) = nil error, want error")
		}
	})
}

func TestLookupTool(t *testing.T) {
	ot := newTestOrders(t)

	t.Run("known order", func(t *testing.T) {
		res, err := ot.Lookup(nil, OrderInput{OrderID: "A101"})
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if res.Status != StatusSuccess {
			t.Fatalf("Status = %q, want success: %+v", res.Status, res.Error)
		}
		if res.Data["item"] != "wireless keyboard" {
			t.Errorf("item = %v, want wireless keyboard", res.Data["item"])
		}
		if res.Data["days_since_purchase"] != 10 {
			t.Errorf("days_since_purchase = %v, want 10", res.Data["days_since_purchase"])
		}
	})

	t.Run("unknown order is a business error", func(t *testing.T) {
		res, err := ot.Lookup(nil, OrderInput{OrderID: "Z999"})
		if err != nil {
			t.Fatalf("Lookup() error = %v, business errors belong in Result", err)
		}
		if res.Status != StatusError || res.Error == nil || res.Error.Code != ErrCodeNotFound {
			t.Errorf("Result = %+v, want not_found business error", res)
		}
	})
}

func TestCancelTool(t *testing.T) {
	tests := []struct {
		name       string
		orderID    string
		wantStatus string
		wantCode   string
	}{
		{"preparing order cancels", "C303", StatusSuccess, ""},
		{"shipping rejected", "B202", StatusError, ErrCodeInvalidState},
		{"delivered rejected", "A101", StatusError, ErrCodeInvalidState},
		{"unknown order", "Z999", StatusError, ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ot := newTestOrders(t)
			res, err := ot.Cancel(nil, OrderInput{OrderID: tt.orderID})
			if err != nil {
				t.Fatalf("Cancel() error = %v", err)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", res.Status, tt.wantStatus)
			}
			if tt.wantCode != "" && (res.Error == nil || res.Error.Code != tt.wantCode) {
				t.Errorf("Error = %+v, want code %q", res.Error, tt.wantCode)
			}
		})
	}

	t.Run("double cancel reports invalid state", func(t *testing.T) {
		ot := newTestOrders(t)
		if res, _ := ot.Cancel(nil, OrderInput{OrderID: "C303"}); res.Status != StatusSuccess {
			t.Fatalf("first cancel failed: %+v", res)
		}
		res, err := ot.Cancel(nil, OrderInput{OrderID: "C303"})
		if err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		if res.Error == nil || res.Error.Code != ErrCodeInvalidState {
			t.Errorf("second cancel = %+v, want invalid_state", res)
		}
	})
}

func TestComputeRefundTool(t *testing.T) {
	ot := newTestOrders(t)

	t.Run("within partial window", func(t *testing.T) {
		// A101: 50000, purchased 10 days ago.
		res, err := ot.ComputeRefund(nil, OrderInput{OrderID: "A101"})
		if err != nil {
			t.Fatalf("ComputeRefund() error = %v", err)
		}
		if res.Status != StatusSuccess {
			t.Fatalf("Status = %q, want success: %+v", res.Status, res.Error)
		}
		if res.Data["refund_amount"] != 45000 {
			t.Errorf("refund_amount = %v, want 45000 (90%% of 50000)", res.Data["refund_amount"])
		}
		if res.Data["refund_rate"] != 90 {
			t.Errorf("refund_rate = %v, want 90", res.Data["refund_rate"])
		}
	})

	t.Run("within full window", func(t *testing.T) {
		// B202: 30000, purchased 3 days ago.
		res, err := ot.ComputeRefund(nil, OrderInput{OrderID: "B202"})
		if err != nil {
			t.Fatalf("ComputeRefund() error = %v", err)
		}
		if res.Data["refund_amount"] != 30000 {
			t.Errorf("refund_amount = %v, want full 30000", res.Data["refund_amount"])
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		res, err := ot.ComputeRefund(nil, OrderInput{OrderID: "Z999"})
		if err != nil {
			t.Fatalf("ComputeRefund() error = %v", err)
		}
		if res.Error == nil || res.Error.Code != ErrCodeNotFound {
			t.Errorf("Result = %+v, want not_found", res)
		}
	})
}

func TestComputeRefundIneligible(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	repo := order.NewStore([]order.Order{{
		ID:          "OLD1",
		Item:        "desk lamp",
		Price:       20000,
		Status:      order.StatusDelivered,
		PurchasedAt: now().AddDate(0, 0, -30),
	}}, now)
	ot, err := NewOrders(repo, log.NewNop())
	if err != nil {
		t.Fatalf("NewOrders() error = %v", err)
	}

	res, err := ot.ComputeRefund(nil, OrderInput{OrderID: "OLD1"})
	if err != nil {
		t.Fatalf("ComputeRefund() error = %v", err)
	}
	if res.Error == nil || res.Error.Code != ErrCodeIneligible {
		t.Errorf("Result = %+v, want ineligible after 14 days", res)
	}
}

func TestRequestHandoffTool(t *testing.T) {
	ot := newTestOrders(t)

	res, err := ot.RequestHandoff(nil, HandoffInput{Reason: "customer wants a person"})
	if err != nil {
		t.Fatalf("RequestHandoff() error = %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("Status = %q, want success", res.Status)
	}
	if res.Data["acknowledged"] != true {
		t.Errorf("acknowledged = %v, want true", res.Data["acknowledged"])
	}
	if res.Data["message"] == "" {
		t.Error("message is empty, want customer-relayable confirmation")
	}
}

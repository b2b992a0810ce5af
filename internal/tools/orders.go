package tools

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/finchdesk/finch/internal/order"
)

// Tool name constants for order operations registered with Genkit.
const (
	// LookupOrderName is the Genkit tool name for order status lookups.
	LookupOrderName = "lookup_order"
	// CancelOrderName is the Genkit tool name for order cancellation.
	CancelOrderName = "cancel_order"
	// ComputeRefundName is the Genkit tool name for refund quotes.
	ComputeRefundName = "compute_refund"
	// RequestHumanHandoffName is the Genkit tool name for escalation.
	RequestHumanHandoffName = "request_human_handoff"
)

// OrderInput identifies the order a tool operates on.
type OrderInput struct {
	OrderID string `json:"order_id" jsonschema_description:"The order identifier, e.g. 'A101'"`
}

// HandoffInput describes an escalation request.
type HandoffInput struct {
	Reason string `json:"reason" jsonschema_description:"Short summary of why the customer needs a human agent"`
}

// OrderRepository is the order store surface the tools need.
// Interface defined by the consumer; *order.Store satisfies it.
type OrderRepository interface {
	Lookup(id string) (order.Summary, error)
	Cancel(id string) error
}

// Orders holds dependencies for order operation handlers.
// Use NewOrders to create an instance, then RegisterOrders to register
// with Genkit.
type Orders struct {
	repo   OrderRepository
	logger *slog.Logger
}

// NewOrders creates an Orders toolset.
func NewOrders(repo OrderRepository, logger *slog.Logger) (*Orders, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Orders{repo: repo, logger: logger}, nil
}

// RegisterOrders registers all order operation tools with Genkit.
func RegisterOrders(g *genkit.Genkit, ot *Orders) ([]ai.Tool, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if ot == nil {
		return nil, fmt.Errorf("Orders is required")
	}

	return []ai.Tool{
		genkit.DefineTool(g, LookupOrderName,
			"Look up an order by its ID. "+
				"Returns: item name, price, fulfillment status, and the number of days since purchase. "+
				"Use this whenever the customer asks about an order's status or details. "+
				"Always call this before discussing refunds or cancellation so you know the order's state.",
			ot.Lookup),
		genkit.DefineTool(g, CancelOrderName,
			"Cancel an order that has not shipped yet. "+
				"Only orders still in the Preparing state can be cancelled; shipped, delivered, "+
				"or already-cancelled orders are rejected with the reason. "+
				"Use this only after the customer explicitly confirms they want to cancel.",
			ot.Cancel),
		genkit.DefineTool(g, ComputeRefundName,
			"Compute the refund amount for an order under the refund policy. "+
				"Within 7 days of purchase the full price is refunded, from day 8 to day 14 "+
				"the refund is 90 percent rounded down, and after 14 days the order is not eligible. "+
				"Returns the eligible flag, the refund amount, and the applied rate.",
			ot.ComputeRefund),
		genkit.DefineTool(g, RequestHumanHandoffName,
			"Escalate the conversation to a human support agent. "+
				"Use this when the customer asks for a person, is upset, or the request "+
				"is outside your tools and knowledge. Returns a confirmation the customer can be told.",
			ot.RequestHandoff),
	}, nil
}

// Lookup returns the order summary for the given ID.
func (o *Orders) Lookup(_ *ai.ToolContext, input OrderInput) (Result, error) {
	o.logger.Debug("Lookup called", "order_id", input.OrderID)

	summary, err := o.repo.Lookup(input.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return failure(ErrCodeNotFound, fmt.Sprintf("no order found with ID %q", input.OrderID)), nil
		}
		return Result{}, fmt.Errorf("looking up order %q: %w", input.OrderID, err)
	}

	return success(map[string]any{
		"order_id":            summary.ID,
		"item":                summary.Item,
		"price":               summary.Price,
		"status":              string(summary.Status),
		"days_since_purchase": summary.DaysSincePurchase,
	}), nil
}

// Cancel transitions a Preparing order to Cancelled.
// State conflicts are business errors reported in Result.Error.
func (o *Orders) Cancel(_ *ai.ToolContext, input OrderInput) (Result, error) {
	o.logger.Debug("Cancel called", "order_id", input.OrderID)

	switch err := o.repo.Cancel(input.OrderID); {
	case err == nil:
		o.logger.Info("order cancelled", "order_id", input.OrderID)
		return success(map[string]any{
			"order_id": input.OrderID,
			"status":   string(order.StatusCancelled),
		}), nil
	case errors.Is(err, order.ErrNotFound):
		return failure(ErrCodeNotFound, fmt.Sprintf("no order found with ID %q", input.OrderID)), nil
	case errors.Is(err, order.ErrNotCancellable):
		return failure(ErrCodeInvalidState,
			fmt.Sprintf("order %q can no longer be cancelled: only orders still being prepared are cancellable", input.OrderID)), nil
	default:
		return Result{}, fmt.Errorf("cancelling order %q: %w", input.OrderID, err)
	}
}

// ComputeRefund looks up the order and applies the refund policy.
func (o *Orders) ComputeRefund(_ *ai.ToolContext, input OrderInput) (Result, error) {
	o.logger.Debug("ComputeRefund called", "order_id", input.OrderID)

	summary, err := o.repo.Lookup(input.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return failure(ErrCodeNotFound, fmt.Sprintf("no order found with ID %q", input.OrderID)), nil
		}
		return Result{}, fmt.Errorf("looking up order %q: %w", input.OrderID, err)
	}

	quote := order.RefundQuote(summary.Price, summary.DaysSincePurchase)
	if !quote.Eligible {
		return failure(ErrCodeIneligible,
			fmt.Sprintf("order %q was purchased %d days ago and is past the 14-day refund window",
				input.OrderID, summary.DaysSincePurchase)), nil
	}

	return success(map[string]any{
		"order_id":            summary.ID,
		"price":               summary.Price,
		"days_since_purchase": summary.DaysSincePurchase,
		"refund_amount":       quote.Amount,
		"refund_rate":         quote.Rate,
	}), nil
}

// RequestHandoff acknowledges an escalation request. No ticket is created;
// the acknowledgment is relayed to the customer by the model.
func (o *Orders) RequestHandoff(_ *ai.ToolContext, input HandoffInput) (Result, error) {
	o.logger.Info("human handoff requested", "reason", input.Reason)

	return success(map[string]any{
		"acknowledged": true,
		"message":      "A human support agent has been notified and will follow up in this conversation shortly.",
	}), nil
}

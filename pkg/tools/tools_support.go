package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/minhyannv/ai-chat-go/pkg/support"
)

// TicketPriorities are the accepted create_ticket priorities.
var TicketPriorities = []string{"low", "normal", "high", "urgent"}

// SupportTools serves the customer support tools from the support datasets.
type SupportTools struct {
	Orders  *support.Orders
	Tickets support.TicketStore
	Resets  *support.Resets
	Now     func() time.Time
}

func (s SupportTools) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Specs returns create_ticket, fetch_order_status and reset_password.
func (s SupportTools) Specs() []Spec {
	return []Spec{
		{
			Name:        "create_ticket",
			Description: "Create a support ticket for customer issues",
			Parameters: []Parameter{
				{Name: "summary", Type: TypeString, Required: true, Description: "Brief summary of the customer's issue"},
				{Name: "user_email", Type: TypeString, Required: true, Description: "Customer's email address"},
				{Name: "priority", Type: TypeString, Enum: TicketPriorities, Description: "Priority level of the ticket"},
			},
			Handler: s.createTicket,
		},
		{
			Name:        "fetch_order_status",
			Description: "Get the current status of a customer order",
			Parameters: []Parameter{
				{Name: "order_id", Type: TypeString, Required: true, Description: "The order ID to look up (e.g., A1234, B5678)"},
			},
			Handler: s.fetchOrderStatus,
		},
		{
			Name:        "reset_password",
			Description: "Initiate password reset for a user account",
			Parameters: []Parameter{
				{Name: "email", Type: TypeString, Required: true, Description: "User's email address for password reset"},
			},
			Handler: s.resetPassword,
		},
	}
}

func (s SupportTools) createTicket(ctx context.Context, args Args) (string, error) {
	if s.Tickets == nil {
		return "", fmt.Errorf("ticket store is not configured")
	}
	ticket := support.NewTicket(args.String("summary"), args.String("user_email"), args.String("priority"), s.now())
	if err := s.Tickets.Create(ctx, ticket); err != nil {
		return "", err
	}
	return marshalData(map[string]any{
		"ticket_id": ticket.ID,
		"status":    ticket.Status,
		"priority":  ticket.Priority,
	})
}

func (s SupportTools) fetchOrderStatus(_ context.Context, args Args) (string, error) {
	orders := s.Orders
	if orders == nil {
		orders = support.DefaultOrders()
	}
	order, err := orders.Lookup(args.String("order_id"))
	if err != nil {
		return "", err
	}
	return marshalData(struct {
		Found bool `json:"found"`
		support.Order
	}{Found: true, Order: order})
}

func (s SupportTools) resetPassword(_ context.Context, args Args) (string, error) {
	if s.Resets == nil {
		return "", fmt.Errorf("password resets are not configured")
	}
	reset := s.Resets.Request(args.String("email"))
	return marshalData(map[string]any{
		"email":        reset.Email,
		"reset_token":  reset.Token,
		"instructions": "Password reset link emailed if account exists.",
	})
}

// Package executor builds broker orders from a triggered plan and posts
// them to the external broker's HTTP endpoint, interpreting its retcode
// contract.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/akephisit/reflexguard/pkg/models"
)

// Magic is the integer identification constant stamped on every order this
// system sends, so the broker/operator can attribute fills to this system.
const Magic = 420001

// CallTimeout is the hard, unconditional deadline for a single broker call.
const CallTimeout = 5 * time.Second

// MockEndpoint is the sentinel broker base URL that short-circuits FireTrade
// with a synthetic success, for end-to-end tests without a live broker.
const MockEndpoint = "mock"

// MockTicket is the broker ticket returned by the mock sentinel.
const MockTicket int64 = 999999

// OrderRequest is the broker request body built from a plan and its
// execution-side price.
type OrderRequest struct {
	Symbol  string  `json:"symbol"`
	Action  string  `json:"action"` // "BUY" | "SELL"
	Volume  float64 `json:"volume"`
	Price   float64 `json:"price"`
	SL      float64 `json:"sl"`
	TP      float64 `json:"tp"`
	Comment string  `json:"comment"`
	Magic   int     `json:"magic"`
}

// OrderResponse is the broker's reply.
type OrderResponse struct {
	Retcode int     `json:"retcode"`
	Order   *int64  `json:"order,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

// ExecutionError wraps any failure to execute the order at the broker:
// unreachable, non-2xx HTTP, non-success retcode, or timeout.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string { return e.Message }

// retcodeSuccess is the only broker retcode that means the order filled.
const retcodeSuccess = 10009

// BuildOrder constructs the broker request for a plan triggering at
// executionPrice. NoTrade direction is rejected with an error.
func BuildOrder(plan *models.ActiveStrategy, executionPrice float64) (OrderRequest, error) {
	var action string
	switch plan.Direction {
	case models.Buy:
		action = "BUY"
	case models.Sell:
		action = "SELL"
	default:
		return OrderRequest{}, fmt.Errorf("cannot build order for direction %q", plan.Direction)
	}

	comment := "AGV-" + shortID(plan.ID)

	return OrderRequest{
		Symbol:  plan.Symbol,
		Action:  action,
		Volume:  plan.LotSize,
		Price:   executionPrice,
		SL:      plan.StopLoss,
		TP:      plan.TakeProfit,
		Comment: comment,
		Magic:   Magic,
	}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Executor posts orders to the broker over a shared, connection-pooled
// HTTP client.
type Executor struct {
	client *resty.Client
}

// New creates an Executor backed by a single shared resty client.
func New() *Executor {
	return &Executor{client: resty.New()}
}

// FireTrade posts order to endpoint + "/order/send" and interprets the
// broker's retcode. The mock sentinel endpoint short-circuits without any
// network call.
func (e *Executor) FireTrade(ctx context.Context, order OrderRequest, endpoint string) (*OrderResponse, error) {
	if endpoint == MockEndpoint {
		ticket := MockTicket
		comment := "mock fill"
		return &OrderResponse{Retcode: retcodeSuccess, Order: &ticket, Comment: &comment}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	var result OrderResponse
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(order).
		SetResult(&result).
		Post(endpoint + "/order/send")
	if err != nil {
		return nil, &ExecutionError{Message: fmt.Sprintf("broker call failed: %v", err)}
	}
	if resp.IsError() {
		return nil, &ExecutionError{Message: fmt.Sprintf("broker returned status %d: %s", resp.StatusCode(), resp.String())}
	}
	if result.Retcode != retcodeSuccess {
		comment := ""
		if result.Comment != nil {
			comment = *result.Comment
		}
		return nil, &ExecutionError{Message: fmt.Sprintf("broker rejected order, retcode=%d: %s", result.Retcode, comment)}
	}

	return &result, nil
}

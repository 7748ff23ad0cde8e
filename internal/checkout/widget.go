package checkout

import (
	"context"
	"encoding/json"
)

// WidgetConfig is the option object handed to the vendor checkout script.
type WidgetConfig struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	OrderID     string  `json:"order_id"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`
	Prefill     Prefill `json:"prefill"`
	Theme       Theme   `json:"theme"`
}

type Prefill struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type Theme struct {
	Color string `json:"color,omitempty"`
}

// WidgetResult is the widget's single completion signal: either the success
// payload or a dismissal.
type WidgetResult struct {
	Payload   json.RawMessage
	Dismissed bool
}

// Widget opens the payment UI. The returned channel yields exactly one result.
type Widget interface {
	Open(ctx context.Context, cfg WidgetConfig) (<-chan WidgetResult, error)
}

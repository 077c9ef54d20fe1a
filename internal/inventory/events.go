package inventory

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Quantity is an item count that accepts either a JSON number or a numeric string.
type Quantity int64

func (q *Quantity) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return fmt.Errorf("quantity is null")
	}

	quoted := strings.HasPrefix(raw, `"`)
	if quoted {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*q = Quantity(n)
		return nil
	}
	if !quoted {
		// 30.0 is a whole number.
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
			*q = Quantity(f)
			return nil
		}
	}
	return fmt.Errorf("quantity %q is not an integer", raw)
}

// OrderEvent is the body of an order_created message.
type OrderEvent struct {
	OrderID  string
	Item     string
	Quantity Quantity
	// Metadata holds every other field of the order, undecoded.
	Metadata map[string]json.RawMessage
}

// MarshalJSON flattens Metadata back next to the known fields.
func (e OrderEvent) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(e.Metadata)+3)
	for k, v := range e.Metadata {
		fields[k] = v
	}
	if e.OrderID != "" {
		fields["order_id"] = e.OrderID
	}
	fields["item"] = e.Item
	fields["quantity"] = int64(e.Quantity)
	return json.Marshal(fields)
}

// DecodeOrderEvent parses a message body. It requires a non-empty string item
// and an integer quantity; failures wrap ErrMalformedEvent.
func DecodeOrderEvent(body []byte) (OrderEvent, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return OrderEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var event OrderEvent

	rawItem, ok := fields["item"]
	if !ok {
		return OrderEvent{}, fmt.Errorf("%w: missing item", ErrMalformedEvent)
	}
	if err := json.Unmarshal(rawItem, &event.Item); err != nil || event.Item == "" {
		return OrderEvent{}, fmt.Errorf("%w: item must be a non-empty string", ErrMalformedEvent)
	}

	rawQuantity, ok := fields["quantity"]
	if !ok {
		return OrderEvent{}, fmt.Errorf("%w: missing quantity", ErrMalformedEvent)
	}
	if err := json.Unmarshal(rawQuantity, &event.Quantity); err != nil {
		return OrderEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if rawID, ok := fields["order_id"]; ok {
		// order_id is informational; a non-string value is kept in Metadata instead.
		if err := json.Unmarshal(rawID, &event.OrderID); err == nil {
			delete(fields, "order_id")
		}
	}

	delete(fields, "item")
	delete(fields, "quantity")
	if len(fields) > 0 {
		event.Metadata = fields
	}
	return event, nil
}

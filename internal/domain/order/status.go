package order

// Status is ordinal: cancellation is allowed from any status strictly before
// StatusCanceled, and fulfilment advances one step at a time.
type Status int

const (
	StatusPending Status = iota
	StatusPlaced
	StatusOnWay
	StatusDelivered
	StatusCanceled
)

var statusNames = map[Status]string{
	StatusPending:   "pending",
	StatusPlaced:    "placed",
	StatusOnWay:     "on_way",
	StatusDelivered: "delivered",
	StatusCanceled:  "canceled",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Cancelable reports whether an order in this status may still be canceled.
// Delivered and canceled are terminal.
func (s Status) Cancelable() bool {
	return s < StatusCanceled && s != StatusDelivered
}

// Next returns the fulfilment step that follows s. Only placed and on_way
// orders advance; everything else is a terminal or gateway-driven state.
func (s Status) Next() (Status, error) {
	switch s {
	case StatusPlaced:
		return StatusOnWay, nil
	case StatusOnWay:
		return StatusDelivered, nil
	default:
		return s, ErrInvalidTransition
	}
}

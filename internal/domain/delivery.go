package domain

// DeliveryStatus is the per-subscriber result of a fan-out.
type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryDuplicate DeliveryStatus = "duplicate"
	DeliveryInactive  DeliveryStatus = "inactive"
	DeliveryDisabled  DeliveryStatus = "disabled"
	DeliveryFailed    DeliveryStatus = "failed"
)

// DeliveryOutcome is one subscriber's result.
type DeliveryOutcome struct {
	SubscriberID int64
	Status       DeliveryStatus
	Err          error // send error when Status is failed
	MarkErr      error // marker write error after a successful send
}

// DeliveryReport collects outcomes for one trade.
type DeliveryReport struct {
	Signature string
	Address   string
	Outcomes  []DeliveryOutcome
}

// Count returns the number of outcomes with the given status.
func (r *DeliveryReport) Count(status DeliveryStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

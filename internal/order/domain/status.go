package domain

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusPaid       Status = "PAID"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusRefunded   Status = "REFUNDED"
	StatusRejected   Status = "REJECTED"
)

var allStatuses = []Status{
	StatusPending, StatusPaid, StatusProcessing, StatusShipped,
	StatusDelivered, StatusCancelled, StatusRefunded, StatusRejected,
}

func ParseStatus(s string) (Status, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, st := range allStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// MapGatewayStatus translates the provider vocabulary. Anything unrecognized
// maps to PENDING, including provider states such as "refunded" or
// "in_mediation".
func MapGatewayStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved":
		return StatusPaid
	case "rejected":
		return StatusRejected
	case "cancelled":
		return StatusCancelled
	default:
		return StatusPending
	}
}

// checkReconcile: PENDING moves to any payment outcome. A failed attempt
// (REJECTED or CANCELLED) can still be settled by a later approved payment on
// the same preference. PAID accepts only itself.
func checkReconcile(from, to Status) error {
	switch from {
	case StatusPending:
		switch to {
		case StatusPending, StatusPaid, StatusRejected, StatusCancelled:
			return nil
		}
	case StatusRejected, StatusCancelled:
		if to == from || to == StatusPaid {
			return nil
		}
	case StatusPaid:
		if to == StatusPaid {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

var fulfillment = map[Status]Status{
	StatusPaid:       StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

func checkFulfillment(from, to Status) error {
	if next, ok := fulfillment[from]; ok && next == to {
		return nil
	}
	if from == StatusPending && to == StatusCancelled {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

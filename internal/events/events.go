package events

// Payload shapes for the domain events this service emits. Publishers fill
// these and call ToMap to build the outbox payload; consumers decode the
// stored JSON back into the same struct via the json tags.

// PaymentSettledPayload records a settled invoice and the booking it confirmed.
type PaymentSettledPayload struct {
	InvoiceID string `json:"invoice_id"`
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference,omitempty"`
}

func (p PaymentSettledPayload) ToMap() map[string]any {
	payload := map[string]any{
		"invoice_id": p.InvoiceID,
		"booking_id": p.BookingID,
		"amount":     p.Amount,
		"method":     p.Method,
	}
	if p.Reference != "" {
		payload["reference"] = p.Reference
	}
	return payload
}

// HoursClampedPayload records a negative balance that was clamped to zero.
type HoursClampedPayload struct {
	EnrollmentID  string `json:"enrollment_id"`
	DeltaHours    int    `json:"delta_hours"`
	HoursConsumed int    `json:"hours_consumed"`
}

func (p HoursClampedPayload) ToMap() map[string]any {
	return map[string]any{
		"enrollment_id":  p.EnrollmentID,
		"delta_hours":    p.DeltaHours,
		"hours_consumed": p.HoursConsumed,
	}
}

// BookingRepairPayload is shared by the reconciler's repair events; both the
// orphan-invoice and confirm-redrive paths identify the same booking/invoice pair.
type BookingRepairPayload struct {
	BookingID string `json:"booking_id"`
	InvoiceID string `json:"invoice_id"`
}

func (p BookingRepairPayload) ToMap() map[string]any {
	return map[string]any{
		"booking_id": p.BookingID,
		"invoice_id": p.InvoiceID,
	}
}

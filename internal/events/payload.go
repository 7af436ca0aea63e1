package events

// Contact identifies who a notification is addressed to.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// VoucherNotification is the payload persisted with every voucher event and
// handed to the notification worker.
type VoucherNotification struct {
	EventType        string  `json:"event_type"`
	VoucherID        string  `json:"voucher_id"`
	StudioID         string  `json:"studio_id"`
	Code             string  `json:"code"`
	OrderNumber      string  `json:"order_number"`
	Amount           string  `json:"amount"`
	RemainingAmount  string  `json:"remaining_amount"`
	RedeemedAmount   string  `json:"redeemed_amount,omitempty"`
	PaymentStatus    string  `json:"payment_status"`
	DeliveryMethod   string  `json:"delivery_method"`
	ExpiresAt        string  `json:"expires_at"`
	Sender           Contact `json:"sender"`
	RecipientContact Contact `json:"recipient_contact"`
}

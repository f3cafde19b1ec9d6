package telegram

// Update is the subset of a Bot API update the webhook cares about:
// pre-checkout queries and successful payments.
type Update struct {
	PreCheckoutQuery *PreCheckoutQuery `json:"pre_checkout_query,omitempty"`
	Message          *Message          `json:"message,omitempty"`
}

// PreCheckoutQuery is Telegram asking whether the payment may proceed.
type PreCheckoutQuery struct {
	ID             string `json:"id"`
	From           User   `json:"from"`
	InvoicePayload string `json:"invoice_payload"`
	TotalAmount    int64  `json:"total_amount"`
}

// Message carries a successful payment when present.
type Message struct {
	From              *User              `json:"from,omitempty"`
	SuccessfulPayment *SuccessfulPayment `json:"successful_payment,omitempty"`
}

// SuccessfulPayment confirms a charged Stars payment.
type SuccessfulPayment struct {
	InvoicePayload          string `json:"invoice_payload"`
	TotalAmount             int64  `json:"total_amount"`
	TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
}

// User is a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// InvoicePayload is the JSON blob round-tripped through the invoice.
type InvoicePayload struct {
	UserID    int64 `json:"user_id"`
	EntryFee  int64 `json:"entry_fee"`
	Timestamp int64 `json:"timestamp"`
}

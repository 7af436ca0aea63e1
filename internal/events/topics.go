package events

// Topic constants for voucher lifecycle events.
const (
	TopicVoucherCreated  = "voucher.created"
	TopicVoucherPaid     = "voucher.paid"
	TopicVoucherRedeemed = "voucher.redeemed"
)

// DefaultTopics returns the topics that trigger notifications.
func DefaultTopics() []string {
	return []string{
		TopicVoucherCreated,
		TopicVoucherPaid,
		TopicVoucherRedeemed,
	}
}

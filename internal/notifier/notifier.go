package notifier

import (
	model "auction-house/internal/models"
	"auction-house/utils"
)

// Notifier tells a bidder they have won the current payment window. Delivery
// is best effort: implementations must not block the caller and a failed
// notification never blocks a state transition.
type Notifier interface {
	NotifyWinner(auction model.Auction, attempt model.PaymentAttempt)
}

// LogNotifier writes winner notifications to the structured log. It stands in
// for the outbound email collaborator, which is out of scope for the engine.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyWinner(auction model.Auction, attempt model.PaymentAttempt) {
	utils.Info("payment window opened for winning bidder", map[string]any{
		"auction_id":     auction.AuctionID,
		"product_id":     auction.ProductID,
		"bidder_id":      attempt.BidderID,
		"attempt_number": attempt.AttemptNumber,
		"amount":         attempt.Amount,
		"pay_before":     attempt.ExpiryTime,
	})
}

// Package notify pushes purchase outcomes to the live activity feed.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ripplegate/ripplegate/internal/models"
)

const ActivityChannel = "ticket-activity"

type Publisher interface {
	Publish(ctx context.Context, channel string, message any) error
}

// ActivityMessage is the wire shape of one activity entry, shared by the
// feed endpoint and the realtime channel.
type ActivityMessage struct {
	ID          uuid.UUID       `json:"id"`
	UserName    string          `json:"user_name"`
	EventName   string          `json:"event_name"`
	TicketPrice decimal.Decimal `json:"ticket_price"`
	Status      string          `json:"status"`
	NFTID       *string         `json:"nft_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

func NewActivityMessage(a models.Activity) ActivityMessage {
	return ActivityMessage{
		ID:          a.TicketID,
		UserName:    displayName(a.UserEmail),
		EventName:   a.EventTitle,
		TicketPrice: a.Price,
		Status:      string(a.Status),
		NFTID:       a.NFTID,
		CreatedAt:   a.CreatedAt,
	}
}

func displayName(email string) string {
	if name, _, ok := strings.Cut(email, "@"); ok && name != "" {
		return name
	}
	return email
}

// Notifier publishes settled tickets. Failures are logged and never reach
// the purchase result.
type Notifier struct {
	pub    Publisher
	logger *slog.Logger
}

func New(pub Publisher) *Notifier {
	return &Notifier{
		pub:    pub,
		logger: slog.Default().With("module", "notify", "layer", "adapter"),
	}
}

func (n *Notifier) TicketSettled(ctx context.Context, activity models.Activity, userID uuid.UUID) {
	msg := NewActivityMessage(activity)
	for _, channel := range []string{ActivityChannel, "user-" + userID.String()} {
		if err := n.pub.Publish(ctx, channel, msg); err != nil {
			n.logger.WarnContext(ctx, "publish activity failed",
				"operation", "publish",
				"outcome", "failure",
				"channel", channel,
				"ticket_id", activity.TicketID,
				"error", err.Error(),
			)
		}
	}
}

// Discard drops every message; used when no realtime keys are configured.
type Discard struct{}

func (Discard) Publish(context.Context, string, any) error { return nil }

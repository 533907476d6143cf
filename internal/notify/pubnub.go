package notify

import (
	"context"
	"fmt"

	pubnub "github.com/pubnub/go/v7"
)

type PubNubConfig struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
	UserID       string
}

type PubNubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNub(cfg PubNubConfig) *PubNubPublisher {
	userID := cfg.UserID
	if userID == "" {
		userID = "ripplegate-api"
	}
	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(userID))
	pnConfig.PublishKey = cfg.PublishKey
	pnConfig.SubscribeKey = cfg.SubscribeKey
	pnConfig.SecretKey = cfg.SecretKey

	return &PubNubPublisher{pn: pubnub.NewPubNub(pnConfig)}
}

func (p *PubNubPublisher) Publish(ctx context.Context, channel string, message any) error {
	_, status, err := p.pn.PublishWithContext(ctx).
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		return fmt.Errorf("pubnub publish %s: %w", channel, err)
	}
	if status.Error != nil {
		return fmt.Errorf("pubnub publish %s: %w", channel, status.Error)
	}
	return nil
}

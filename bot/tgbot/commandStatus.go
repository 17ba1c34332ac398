package tgbot

import (
	"context"
	"fmt"
	"time"

	"github.com/goserg/eventhub/internal/domain"
	"github.com/goserg/eventhub/internal/service"
)

type StatusCommand struct {
	subscriptions *service.SubscriptionService
}

func (c *StatusCommand) Run(ctx context.Context, _ int64, args string) (string, error) {
	ids, err := parseIDs(args, 2)
	if err != nil {
		return "", err
	}
	status, err := c.subscriptions.Status(ctx, ids[0], ids[1])
	if err != nil {
		return "", userMessage(err)
	}
	if status.FriendshipStatus == domain.FriendshipNone || status.SubscriptionTime == nil {
		return fmt.Sprintf("%d is not subscribed to %d", ids[0], ids[1]), nil
	}
	return fmt.Sprintf("%d -> %d: %s since %s", ids[0], ids[1], status.FriendshipStatus, status.SubscriptionTime.Format(time.RFC1123)), nil
}

func (c *StatusCommand) Help() string {
	return `Subscription state between two users. Usage: /status <userId> <targetUserId>`
}

package tgbot

import (
	"context"
	"fmt"

	"github.com/goserg/eventhub/internal/service"
)

type CountCommand struct {
	subscriptions *service.SubscriptionService
}

func (c *CountCommand) Run(ctx context.Context, _ int64, args string) (string, error) {
	ids, err := parseIDs(args, 1)
	if err != nil {
		return "", err
	}
	count, err := c.subscriptions.Count(ctx, ids[0])
	if err != nil {
		return "", userMessage(err)
	}
	return fmt.Sprintf("subscriptions: %d\nsubscribers: %d", count.Subscriptions, count.Subscribers), nil
}

func (c *CountCommand) Help() string {
	return `Subscription counters of a user. Usage: /count <userId>`
}

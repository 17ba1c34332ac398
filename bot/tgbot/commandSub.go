package tgbot

import "context"

type SubCommand struct {
	subs *subscriptions
}

func (c *SubCommand) Run(_ context.Context, chatID int64, _ string) (string, error) {
	if !c.subs.Add(chatID) {
		return "Already subscribed. To stop notifications: /unsub", nil
	}
	return "Subscribed to confirmations and new friendships. To stop notifications: /unsub", nil
}

func (c *SubCommand) Help() string {
	return `Subscribe to notifications`
}

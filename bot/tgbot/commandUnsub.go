package tgbot

import "context"

type UnsubCommand struct {
	subs *subscriptions
}

func (c *UnsubCommand) Run(_ context.Context, chatID int64, _ string) (string, error) {
	if !c.subs.Remove(chatID) {
		return "Not subscribed. To subscribe: /sub", nil
	}
	return "Subscription canceled. To subscribe again: /sub", nil
}

func (c *UnsubCommand) Help() string {
	return `Unsubscribe from notifications`
}

package tgbot

import (
	"context"
	"fmt"

	"github.com/goserg/eventhub/internal/service"
)

type RatingCommand struct {
	admission *service.AdmissionService
	rating    *service.RatingService
}

func (c *RatingCommand) Run(ctx context.Context, _ int64, args string) (string, error) {
	ids, err := parseIDs(args, 1)
	if err != nil {
		return "", err
	}
	event, err := c.admission.GetEvent(ctx, ids[0])
	if err != nil {
		return "", userMessage(err)
	}
	rating, err := c.rating.TotalRating(ctx, event.ID)
	if err != nil {
		return "", userMessage(err)
	}
	return fmt.Sprintf("%s\nlikes: %d\ndislikes: %d\nrating: %d", event.Title, rating.Likes, rating.Dislikes, rating.Total), nil
}

func (c *RatingCommand) Help() string {
	return `Event rating. Usage: /rating <eventId>`
}

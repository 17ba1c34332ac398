package tgbot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goserg/eventhub/internal/domain"
)

type Command interface {
	Run(ctx context.Context, chatID int64, args string) (string, error)
	Help() string
}

type Commands struct {
	list map[string]Command
}

func NewCommands(services Services, subs *subscriptions) *Commands {
	hc := &HelpCommand{}
	uc := Commands{
		list: map[string]Command{
			"help":  hc,
			"start": hc,
			"rating": &RatingCommand{
				admission: services.Admission,
				rating:    services.Rating,
			},
			"status": &StatusCommand{
				subscriptions: services.Subscriptions,
			},
			"count": &CountCommand{
				subscriptions: services.Subscriptions,
			},
			"sub": &SubCommand{
				subs: subs,
			},
			"unsub": &UnsubCommand{
				subs: subs,
			},
		},
	}
	hc.commands = uc.list
	return &uc
}

func (uc *Commands) RunCommand(ctx context.Context, chatID int64, cmd string, args string) (string, error) {
	command, ok := uc.list[cmd]
	if !ok {
		return "", ErrBadRequest
	}
	return command.Run(ctx, chatID, args)
}

// parseIDs reads exactly n positive ids from args.
func parseIDs(args string, n int) ([]int64, error) {
	fields := strings.Fields(args)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d id(s), got %d", n, len(fields))
	}
	ids := make([]int64, 0, n)
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%q is not an id", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// userMessage turns service errors into replies. Unexpected errors are not
// shown to chats.
func userMessage(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return errors.New("not found")
	case errors.Is(err, domain.ErrInvalidReaction),
		errors.Is(err, domain.ErrInvalidPagination):
		return err
	}
	return errors.New("something went wrong, try later")
}

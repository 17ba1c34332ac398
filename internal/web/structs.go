package web

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/goserg/eventhub/internal/domain"
)

const defaultPageSize = 10

func paramID(ctx *fiber.Ctx, key string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Params(key), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errInvalidParam, key)
	}
	return id, nil
}

func queryInt(ctx *fiber.Ctx, key string, def int) (int, error) {
	raw := ctx.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errInvalidParam, key)
	}
	return v, nil
}

// parseFilter reads listing parameters. Range and enum checks are left to
// SubscriptionFilter.Normalize.
func parseFilter(ctx *fiber.Ctx, userID int64) (domain.SubscriptionFilter, error) {
	var err error
	from, fromErr := queryInt(ctx, "from", 0)
	err = errors.Join(err, fromErr)
	size, sizeErr := queryInt(ctx, "size", defaultPageSize)
	err = errors.Join(err, sizeErr)

	filter := domain.SubscriptionFilter{
		UserID:           userID,
		From:             from,
		Size:             size,
		PeerName:         ctx.Query("targetUserName"),
		SortField:        domain.SortField(ctx.Query("sortField")),
		SortDirection:    domain.SortDirection(ctx.Query("sortDirection")),
		FriendshipStatus: domain.FriendshipStatus(strings.ToUpper(ctx.Query("friendshipStatus"))),
	}
	if raw := ctx.Query("subTime"); raw != "" {
		t, parseErr := time.ParseInLocation(timeLayout, raw, time.Local)
		if parseErr != nil {
			err = errors.Join(err, fmt.Errorf("%w: subTime must match %q", errInvalidParam, timeLayout))
		} else {
			filter.SubscriptionTime = &t
		}
	}
	if err != nil {
		return domain.SubscriptionFilter{}, err
	}
	return filter, nil
}

func parseBody(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		return fmt.Errorf("%w: %s", errInvalidParam, err.Error())
	}
	return validate.Struct(out)
}

package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrInvalidBatch            = errors.New("all requests must belong to the event")
	ErrModerationDisabled      = errors.New("request confirmation is disabled for the event")
	ErrInvalidRequestState     = errors.New("only pending requests can be decided")
	ErrInvalidStatus           = errors.New("status must be CONFIRMED or REJECTED")
	ErrNotInitiator            = errors.New("user is not the event initiator")
	ErrNotRequester            = errors.New("user is not the request owner")
	ErrParticipantLimitReached = errors.New("participant limit reached")
	ErrDuplicateRequest        = errors.New("request already exists")
	ErrSelfParticipation       = errors.New("initiator cannot request participation in own event")
	ErrConcurrentUpdate        = errors.New("concurrent update")

	ErrInvalidReaction = errors.New("reaction must be LIKE or DISLIKE")

	ErrSelfSubscription     = errors.New("user cannot subscribe to themselves")
	ErrSubscriptionDisabled = errors.New("user does not allow subscriptions")
	ErrAlreadySubscribed    = errors.New("user already has a subscription to the target user")
	ErrNotSubscribed        = errors.New("user does not have a subscription to the target user")
	ErrInvalidSortField     = errors.New("invalid sort field")
	ErrInvalidFilter        = errors.New("invalid friendship status filter")
	ErrInvalidPagination    = errors.New("parameters 'from' and 'size' must be non-negative and positive")
)

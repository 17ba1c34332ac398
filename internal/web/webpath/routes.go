package webpath

const (
	Health = "/health"

	User          = "/users/:userId"
	EventRequests = User + "/events/:eventId/requests"
	EventLike     = User + "/events/:eventId/like"
	EventDislike  = User + "/events/:eventId/dislike"
	EventRating   = User + "/events/:eventId/rating"

	UserRequests  = User + "/requests"
	CancelRequest = UserRequests + "/:requestId/cancel"

	Subscriptions     = User + "/subscriptions"
	Unsubscribe       = Subscriptions + "/:targetUserId"
	Subscribers       = Subscriptions + "/subscribers"
	SubscriptionCount = Subscriptions + "/count"
	SubscriptionState = Subscriptions + "/status/:targetUserId"
)

// Path lists the routes for the index served on Health.
func Path() map[string]string {
	return map[string]string{
		"EventRequests":     EventRequests,
		"EventLike":         EventLike,
		"EventDislike":      EventDislike,
		"EventRating":       EventRating,
		"UserRequests":      UserRequests,
		"CancelRequest":     CancelRequest,
		"Subscriptions":     Subscriptions,
		"Unsubscribe":       Unsubscribe,
		"Subscribers":       Subscribers,
		"SubscriptionCount": SubscriptionCount,
		"SubscriptionState": SubscriptionState,
	}
}

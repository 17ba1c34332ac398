package storage

import (
	"context"

	"github.com/goserg/eventhub/internal/domain"
)

// Implementations return domain.ErrNotFound for missing rows and make every
// mutating call all-or-nothing.

type UserStorage interface {
	GetUser(ctx context.Context, id int64) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
}

type EventStorage interface {
	GetEvent(ctx context.Context, id int64) (domain.Event, error)
	CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error)

	GetRequest(ctx context.Context, id int64) (domain.ParticipationRequest, error)
	FindRequestsByIDs(ctx context.Context, ids []int64) ([]domain.ParticipationRequest, error)
	ListRequestsByEvent(ctx context.Context, eventID int64) ([]domain.ParticipationRequest, error)
	ListRequestsByRequester(ctx context.Context, requesterID int64) ([]domain.ParticipationRequest, error)

	// CreateRequest inserts the request and stores event.ConfirmedRequests.
	// It fails with domain.ErrConcurrentUpdate if the stored counter is not
	// expectedConfirmed.
	CreateRequest(ctx context.Context, request domain.ParticipationRequest, event domain.Event, expectedConfirmed int) (domain.ParticipationRequest, error)

	// SaveAdmission stores request statuses and event.ConfirmedRequests as one
	// unit. It fails with domain.ErrConcurrentUpdate if the stored counter is
	// not expectedConfirmed or a request being decided is no longer pending.
	SaveAdmission(ctx context.Context, event domain.Event, expectedConfirmed int, requests []domain.ParticipationRequest) error

	// SaveCancellation stores a canceled request together with the counter.
	SaveCancellation(ctx context.Context, request domain.ParticipationRequest, event domain.Event, expectedConfirmed int) error
}

type ReactionStorage interface {
	FindReaction(ctx context.Context, eventID, userID int64) (domain.Reaction, bool, error)
	InsertReaction(ctx context.Context, reaction domain.Reaction) (domain.Reaction, error)
	DeleteReaction(ctx context.Context, eventID, userID int64) error
	// SwapReaction removes whatever the pair holds and inserts next in one unit.
	SwapReaction(ctx context.Context, next domain.Reaction) (domain.Reaction, error)
	CountReactions(ctx context.Context, eventID int64, t domain.ReactionType) (int64, error)
}

type SubscriptionStorage interface {
	FindEdge(ctx context.Context, subscriberID, targetID int64) (domain.Subscription, bool, error)
	ExistsEdge(ctx context.Context, subscriberID, targetID int64) (bool, error)
	// SaveEdges inserts edges with zero ID and updates the status of the rest.
	SaveEdges(ctx context.Context, edges ...domain.Subscription) ([]domain.Subscription, error)
	// DeleteEdge removes edge and, when repaired is not nil, stores its status
	// in the same unit.
	DeleteEdge(ctx context.Context, edge domain.Subscription, repaired *domain.Subscription) error
	QueryEdges(ctx context.Context, direction domain.Direction, filter domain.SubscriptionFilter) ([]domain.Subscription, error)
	CountEdges(ctx context.Context, userID int64, direction domain.Direction) (int64, error)
}

type Storage interface {
	UserStorage
	EventStorage
	ReactionStorage
	SubscriptionStorage
	Close() error
}

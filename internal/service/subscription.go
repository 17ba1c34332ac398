package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goserg/eventhub/internal/domain"
	"github.com/goserg/eventhub/internal/keylock"
	"github.com/goserg/eventhub/internal/storage"
)

type SubscriptionService struct {
	edges storage.SubscriptionStorage
	users storage.UserStorage
	locks *keylock.Locker
	now   func() time.Time
}

func NewSubscriptionService(edges storage.SubscriptionStorage, users storage.UserStorage) *SubscriptionService {
	return &SubscriptionService{
		edges: edges,
		users: users,
		locks: keylock.New(),
		now:   time.Now,
	}
}

// pairKey is the same for (a, b) and (b, a): the lower id always comes first.
func pairKey(a, b int64) string {
	if b < a {
		a, b = b, a
	}
	return "pair:" + strconv.FormatInt(a, 10) + ":" + strconv.FormatInt(b, 10)
}

func (s *SubscriptionService) Subscribe(ctx context.Context, subscriberID, targetID int64) (domain.Subscription, error) {
	if subscriberID == targetID {
		return domain.Subscription{}, domain.ErrSelfSubscription
	}
	if _, err := s.users.GetUser(ctx, subscriberID); err != nil {
		return domain.Subscription{}, fmt.Errorf("get subscriber %d: %w", subscriberID, err)
	}
	target, err := s.users.GetUser(ctx, targetID)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("get target %d: %w", targetID, err)
	}
	if !target.AllowSubscriptions {
		return domain.Subscription{}, domain.ErrSubscriptionDisabled
	}

	unlock := s.locks.Lock(pairKey(subscriberID, targetID))
	defer unlock()

	return retryOnConflict(func() (domain.Subscription, error) {
		return s.subscribe(ctx, subscriberID, target)
	})
}

// subscribe derives the edge status from the reverse edge. The store rejects
// the write with domain.ErrConcurrentUpdate if another writer changed the
// pair in between.
func (s *SubscriptionService) subscribe(ctx context.Context, subscriberID int64, target domain.User) (domain.Subscription, error) {
	targetID := target.ID
	exists, err := s.edges.ExistsEdge(ctx, subscriberID, targetID)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("check subscription: %w", err)
	}
	if exists {
		return domain.Subscription{}, domain.ErrAlreadySubscribed
	}
	reverse, mutual, err := s.edges.FindEdge(ctx, targetID, subscriberID)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("find reverse subscription: %w", err)
	}

	edge := domain.Subscription{
		SubscriberID:     subscriberID,
		TargetUserID:     targetID,
		SubscriptionTime: s.now(),
		FriendshipStatus: domain.FriendshipOneWay,
	}
	toSave := []domain.Subscription{edge}
	if mutual {
		toSave[0].FriendshipStatus = domain.FriendshipMutual
		reverse.FriendshipStatus = domain.FriendshipMutual
		toSave = append(toSave, reverse)
	}
	saved, err := s.edges.SaveEdges(ctx, toSave...)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("save subscription: %w", err)
	}
	created := saved[0]
	created.Peer = target
	return created, nil
}

// Unsubscribe deletes the edge. A mutual reverse edge becomes one-way.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, subscriberID, targetID int64) (domain.Subscription, error) {
	unlock := s.locks.Lock(pairKey(subscriberID, targetID))
	defer unlock()

	return retryOnConflict(func() (domain.Subscription, error) {
		return s.unsubscribe(ctx, subscriberID, targetID)
	})
}

func (s *SubscriptionService) unsubscribe(ctx context.Context, subscriberID, targetID int64) (domain.Subscription, error) {
	edge, ok, err := s.edges.FindEdge(ctx, subscriberID, targetID)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("find subscription: %w", err)
	}
	if !ok {
		return domain.Subscription{}, domain.ErrNotSubscribed
	}
	reverse, ok, err := s.edges.FindEdge(ctx, targetID, subscriberID)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("find reverse subscription: %w", err)
	}
	var repaired *domain.Subscription
	if ok && reverse.FriendshipStatus == domain.FriendshipMutual {
		reverse.FriendshipStatus = domain.FriendshipOneWay
		repaired = &reverse
	}
	if err := s.edges.DeleteEdge(ctx, edge, repaired); err != nil {
		return domain.Subscription{}, fmt.Errorf("delete subscription: %w", err)
	}
	now := s.now()
	edge.UnsubscribeTime = &now
	return edge, nil
}

func (s *SubscriptionService) ListSubscriptions(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, error) {
	return s.list(ctx, domain.Outgoing, filter)
}

func (s *SubscriptionService) ListSubscribers(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, error) {
	return s.list(ctx, domain.Incoming, filter)
}

func (s *SubscriptionService) list(ctx context.Context, direction domain.Direction, filter domain.SubscriptionFilter) ([]domain.Subscription, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, filter.UserID); err != nil {
		return nil, fmt.Errorf("get user %d: %w", filter.UserID, err)
	}
	edges, err := s.edges.QueryEdges(ctx, direction, filter)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	return edges, nil
}

// Status reports the edge subscriberID -> targetID. A missing edge is
// FriendshipNone, not an error.
func (s *SubscriptionService) Status(ctx context.Context, subscriberID, targetID int64) (domain.SubscriptionStatus, error) {
	edge, ok, err := s.edges.FindEdge(ctx, subscriberID, targetID)
	if err != nil {
		return domain.SubscriptionStatus{}, fmt.Errorf("find subscription: %w", err)
	}
	if !ok {
		return domain.SubscriptionStatus{FriendshipStatus: domain.FriendshipNone}, nil
	}
	t := edge.SubscriptionTime
	return domain.SubscriptionStatus{
		FriendshipStatus: edge.FriendshipStatus,
		SubscriptionTime: &t,
	}, nil
}

func (s *SubscriptionService) Count(ctx context.Context, userID int64) (domain.SubscriptionCount, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return domain.SubscriptionCount{}, fmt.Errorf("get user %d: %w", userID, err)
	}
	out, err := s.edges.CountEdges(ctx, userID, domain.Outgoing)
	if err != nil {
		return domain.SubscriptionCount{}, fmt.Errorf("count subscriptions: %w", err)
	}
	in, err := s.edges.CountEdges(ctx, userID, domain.Incoming)
	if err != nil {
		return domain.SubscriptionCount{}, fmt.Errorf("count subscribers: %w", err)
	}
	return domain.SubscriptionCount{Subscriptions: out, Subscribers: in}, nil
}

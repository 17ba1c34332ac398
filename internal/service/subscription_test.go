package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/goserg/eventhub/internal/domain"
	"github.com/goserg/eventhub/internal/storage/mem"
)

type SubscriptionSuite struct {
	suite.Suite
	ctx   context.Context
	store *mem.Storage
	svc   *SubscriptionService
	clock time.Time
}

func TestSubscriptions(t *testing.T) {
	suite.Run(t, &SubscriptionSuite{})
}

func (s *SubscriptionSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = mem.New()
	s.svc = NewSubscriptionService(s.store, s.store)
	s.clock = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.svc.now = func() time.Time {
		s.clock = s.clock.Add(time.Minute)
		return s.clock
	}
}

func (s *SubscriptionSuite) user(name string, allow bool) domain.User {
	u, err := s.store.CreateUser(s.ctx, domain.User{Name: name, AllowSubscriptions: allow})
	s.Require().NoError(err)
	return u
}

func (s *SubscriptionSuite) status(a, b int64) domain.FriendshipStatus {
	st, err := s.svc.Status(s.ctx, a, b)
	s.Require().NoError(err)
	return st.FriendshipStatus
}

func (s *SubscriptionSuite) TestOneWayThenMutual() {
	alice := s.user("Alice", true)
	bob := s.user("Bob", true)

	edge, err := s.svc.Subscribe(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)
	s.Equal(domain.FriendshipOneWay, edge.FriendshipStatus)
	s.Equal(bob.Name, edge.Peer.Name)
	s.Equal(domain.FriendshipNone, s.status(bob.ID, alice.ID))

	edge, err = s.svc.Subscribe(s.ctx, bob.ID, alice.ID)
	s.Require().NoError(err)
	s.Equal(domain.FriendshipMutual, edge.FriendshipStatus)
	s.Equal(domain.FriendshipMutual, s.status(alice.ID, bob.ID))
	s.Equal(domain.FriendshipMutual, s.status(bob.ID, alice.ID))
}

func (s *SubscriptionSuite) TestUnsubscribeRepairsReverse() {
	alice := s.user("Alice", true)
	bob := s.user("Bob", true)
	_, err := s.svc.Subscribe(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)
	_, err = s.svc.Subscribe(s.ctx, bob.ID, alice.ID)
	s.Require().NoError(err)

	removed, err := s.svc.Unsubscribe(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)
	s.NotNil(removed.UnsubscribeTime)
	s.Equal(domain.FriendshipNone, s.status(alice.ID, bob.ID))
	s.Equal(domain.FriendshipOneWay, s.status(bob.ID, alice.ID))

	_, err = s.svc.Unsubscribe(s.ctx, alice.ID, bob.ID)
	s.ErrorIs(err, domain.ErrNotSubscribed)
}

func (s *SubscriptionSuite) TestSubscribeErrors() {
	alice := s.user("Alice", true)
	bob := s.user("Bob", true)
	hermit := s.user("Hermit", false)
	_, err := s.svc.Subscribe(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)

	tests := []struct {
		name       string
		subscriber int64
		target     int64
		wantErr    error
	}{
		{name: "self", subscriber: alice.ID, target: alice.ID, wantErr: domain.ErrSelfSubscription},
		{name: "disabled", subscriber: alice.ID, target: hermit.ID, wantErr: domain.ErrSubscriptionDisabled},
		{name: "twice", subscriber: alice.ID, target: bob.ID, wantErr: domain.ErrAlreadySubscribed},
		{name: "unknown target", subscriber: alice.ID, target: 9999, wantErr: domain.ErrNotFound},
		{name: "unknown subscriber", subscriber: 9999, target: bob.ID, wantErr: domain.ErrNotFound},
	}
	for _, tt := range tests {
		tt := tt
		s.Run(tt.name, func() {
			_, err := s.svc.Subscribe(s.ctx, tt.subscriber, tt.target)
			s.ErrorIs(err, tt.wantErr)
		})
	}
}

func (s *SubscriptionSuite) TestListSortAndPage() {
	owner := s.user("Owner", true)
	carol := s.user("carol", true)
	bob := s.user("Bob", true)
	alice := s.user("alice", true)
	for _, u := range []domain.User{carol, bob, alice} {
		_, err := s.svc.Subscribe(s.ctx, owner.ID, u.ID)
		s.Require().NoError(err)
	}
	_, err := s.svc.Subscribe(s.ctx, bob.ID, owner.ID)
	s.Require().NoError(err)

	names := func(list []domain.Subscription) []string {
		out := make([]string, 0, len(list))
		for _, e := range list {
			out = append(out, e.Peer.Name)
		}
		return out
	}

	list, err := s.svc.ListSubscriptions(s.ctx, domain.SubscriptionFilter{UserID: owner.ID, Size: 10})
	s.Require().NoError(err)
	s.Equal([]string{"alice", "Bob", "carol"}, names(list))

	list, err = s.svc.ListSubscriptions(s.ctx, domain.SubscriptionFilter{
		UserID:        owner.ID,
		Size:          10,
		SortField:     domain.SortBySubscriptionTime,
		SortDirection: "desc",
	})
	s.Require().NoError(err)
	s.Equal([]string{"alice", "Bob", "carol"}, names(list))

	list, err = s.svc.ListSubscriptions(s.ctx, domain.SubscriptionFilter{UserID: owner.ID, From: 1, Size: 1})
	s.Require().NoError(err)
	s.Equal([]string{"Bob"}, names(list))

	list, err = s.svc.ListSubscriptions(s.ctx, domain.SubscriptionFilter{UserID: owner.ID, From: 5, Size: 1})
	s.Require().NoError(err)
	s.Empty(list)

	list, err = s.svc.ListSubscriptions(s.ctx, domain.SubscriptionFilter{
		UserID:           owner.ID,
		Size:             10,
		FriendshipStatus: domain.FriendshipMutual,
	})
	s.Require().NoError(err)
	s.Equal([]string{"Bob"}, names(list))

	list, err = s.svc.ListSubscriptions(s.ctx, domain.SubscriptionFilter{UserID: owner.ID, Size: 10, PeerName: " CAR "})
	s.Require().NoError(err)
	s.Equal([]string{"carol"}, names(list))

	list, err = s.svc.ListSubscribers(s.ctx, domain.SubscriptionFilter{UserID: owner.ID, Size: 10})
	s.Require().NoError(err)
	s.Equal([]string{"Bob"}, names(list))
}

func (s *SubscriptionSuite) TestListErrors() {
	owner := s.user("Owner", true)
	tests := []struct {
		name    string
		filter  domain.SubscriptionFilter
		wantErr error
	}{
		{name: "zero size", filter: domain.SubscriptionFilter{UserID: owner.ID}, wantErr: domain.ErrInvalidPagination},
		{name: "negative from", filter: domain.SubscriptionFilter{UserID: owner.ID, From: -1, Size: 1}, wantErr: domain.ErrInvalidPagination},
		{name: "sort field", filter: domain.SubscriptionFilter{UserID: owner.ID, Size: 1, SortField: "email"}, wantErr: domain.ErrInvalidSortField},
		{name: "sort direction", filter: domain.SubscriptionFilter{UserID: owner.ID, Size: 1, SortDirection: "up"}, wantErr: domain.ErrInvalidSortField},
		{name: "status filter", filter: domain.SubscriptionFilter{UserID: owner.ID, Size: 1, FriendshipStatus: domain.FriendshipNone}, wantErr: domain.ErrInvalidFilter},
		{name: "unknown user", filter: domain.SubscriptionFilter{UserID: 9999, Size: 1}, wantErr: domain.ErrNotFound},
	}
	for _, tt := range tests {
		tt := tt
		s.Run(tt.name, func() {
			_, err := s.svc.ListSubscriptions(s.ctx, tt.filter)
			s.ErrorIs(err, tt.wantErr)
		})
	}
}

func (s *SubscriptionSuite) TestCount() {
	owner := s.user("Owner", true)
	a := s.user("A", true)
	b := s.user("B", true)
	_, err := s.svc.Subscribe(s.ctx, owner.ID, a.ID)
	s.Require().NoError(err)
	_, err = s.svc.Subscribe(s.ctx, a.ID, owner.ID)
	s.Require().NoError(err)
	_, err = s.svc.Subscribe(s.ctx, b.ID, owner.ID)
	s.Require().NoError(err)

	count, err := s.svc.Count(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.Equal(domain.SubscriptionCount{Subscriptions: 1, Subscribers: 2}, count)

	_, err = s.svc.Count(s.ctx, 9999)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *SubscriptionSuite) TestConcurrentMutualSubscribe() {
	for i := 0; i < 20; i++ {
		a := s.user("A", true)
		b := s.user("B", true)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.svc.Subscribe(s.ctx, a.ID, b.ID)
			s.NoError(err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.svc.Subscribe(s.ctx, b.ID, a.ID)
			s.NoError(err)
		}()
		wg.Wait()

		s.Equal(domain.FriendshipMutual, s.status(a.ID, b.ID))
		s.Equal(domain.FriendshipMutual, s.status(b.ID, a.ID))
	}
}

// foreignWriter lets another writer change the pair once, right before the
// service's first write reaches the store.
type foreignWriter struct {
	*mem.Storage
	once   sync.Once
	change func()
}

func (w *foreignWriter) SaveEdges(ctx context.Context, edges ...domain.Subscription) ([]domain.Subscription, error) {
	w.once.Do(w.change)
	return w.Storage.SaveEdges(ctx, edges...)
}

func (w *foreignWriter) DeleteEdge(ctx context.Context, edge domain.Subscription, repaired *domain.Subscription) error {
	w.once.Do(w.change)
	return w.Storage.DeleteEdge(ctx, edge, repaired)
}

func (s *SubscriptionSuite) TestSubscribeRereadsAfterForeignWrite() {
	alice := s.user("Alice", true)
	bob := s.user("Bob", true)
	store := &foreignWriter{Storage: s.store, change: func() {
		_, err := s.store.SaveEdges(s.ctx, domain.Subscription{
			SubscriberID:     bob.ID,
			TargetUserID:     alice.ID,
			FriendshipStatus: domain.FriendshipOneWay,
		})
		s.Require().NoError(err)
	}}
	svc := NewSubscriptionService(store, store)

	edge, err := svc.Subscribe(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)
	s.Equal(domain.FriendshipMutual, edge.FriendshipStatus)
	s.Equal(domain.FriendshipMutual, s.status(alice.ID, bob.ID))
	s.Equal(domain.FriendshipMutual, s.status(bob.ID, alice.ID))
}

func (s *SubscriptionSuite) TestUnsubscribeRereadsAfterForeignWrite() {
	alice := s.user("Alice", true)
	bob := s.user("Bob", true)
	_, err := s.svc.Subscribe(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)
	forward, ok, err := s.store.FindEdge(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)
	s.Require().True(ok)

	store := &foreignWriter{Storage: s.store, change: func() {
		forward.FriendshipStatus = domain.FriendshipMutual
		_, err := s.store.SaveEdges(s.ctx, domain.Subscription{
			SubscriberID:     bob.ID,
			TargetUserID:     alice.ID,
			FriendshipStatus: domain.FriendshipMutual,
		}, forward)
		s.Require().NoError(err)
	}}
	svc := NewSubscriptionService(store, store)

	_, err = svc.Unsubscribe(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)
	s.Equal(domain.FriendshipNone, s.status(alice.ID, bob.ID))
	s.Equal(domain.FriendshipOneWay, s.status(bob.ID, alice.ID))
}

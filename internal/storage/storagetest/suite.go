// Package storagetest holds the behaviour every storage.Storage must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/goserg/eventhub/internal/domain"
	"github.com/goserg/eventhub/internal/storage"
)

// Suite runs against a fresh store from Open for every test.
type Suite struct {
	suite.Suite
	Open func() storage.Storage

	ctx   context.Context
	store storage.Storage
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.Open()
}

func (s *Suite) TearDownTest() {
	s.NoError(s.store.Close())
}

func (s *Suite) user(name string) domain.User {
	u, err := s.store.CreateUser(s.ctx, domain.User{Name: name, Email: name + "@example.com", AllowSubscriptions: true})
	s.Require().NoError(err)
	s.Require().NotZero(u.ID)
	return u
}

func (s *Suite) event(initiator int64, limit int) domain.Event {
	e, err := s.store.CreateEvent(s.ctx, domain.Event{
		Title:             "conf",
		InitiatorID:       initiator,
		ParticipantLimit:  limit,
		RequestModeration: true,
	})
	s.Require().NoError(err)
	return e
}

func (s *Suite) request(e domain.Event, requester int64) domain.ParticipationRequest {
	r, err := s.store.CreateRequest(s.ctx, domain.ParticipationRequest{
		EventID:     e.ID,
		RequesterID: requester,
		Status:      domain.RequestPending,
	}, e, e.ConfirmedRequests)
	s.Require().NoError(err)
	s.Require().NotZero(r.ID)
	return r
}

func (s *Suite) TestUsersAndEvents() {
	u := s.user("alice")
	got, err := s.store.GetUser(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("alice", got.Name)
	s.True(got.AllowSubscriptions)

	_, err = s.store.GetUser(s.ctx, u.ID+100)
	s.ErrorIs(err, domain.ErrNotFound)

	e := s.event(u.ID, 3)
	gotEvent, err := s.store.GetEvent(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(3, gotEvent.ParticipantLimit)
	s.True(gotEvent.RequestModeration)
	s.Equal(u.ID, gotEvent.InitiatorID)

	_, err = s.store.GetEvent(s.ctx, e.ID+100)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestAdmissionCompareAndSwap() {
	owner := s.user("owner")
	e := s.event(owner.ID, 2)
	r1 := s.request(e, s.user("a").ID)
	r2 := s.request(e, s.user("b").ID)

	found, err := s.store.FindRequestsByIDs(s.ctx, []int64{r2.ID, r1.ID, r2.ID + 1000})
	s.Require().NoError(err)
	s.Len(found, 2)

	next := e
	next.ConfirmedRequests = 1
	r1.Status = domain.RequestConfirmed
	r2.Status = domain.RequestRejected
	s.Require().NoError(s.store.SaveAdmission(s.ctx, next, 0, []domain.ParticipationRequest{r1, r2}))

	got, err := s.store.GetEvent(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(1, got.ConfirmedRequests)

	// stale counter
	next.ConfirmedRequests = 2
	err = s.store.SaveAdmission(s.ctx, next, 0, nil)
	s.ErrorIs(err, domain.ErrConcurrentUpdate)

	// request no longer pending
	err = s.store.SaveAdmission(s.ctx, next, 1, []domain.ParticipationRequest{r1})
	s.ErrorIs(err, domain.ErrConcurrentUpdate)

	got, err = s.store.GetEvent(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(1, got.ConfirmedRequests)

	list, err := s.store.ListRequestsByEvent(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(domain.RequestConfirmed, list[0].Status)
	s.Equal(domain.RequestRejected, list[1].Status)

	own, err := s.store.ListRequestsByRequester(s.ctx, r1.RequesterID)
	s.Require().NoError(err)
	s.Len(own, 1)
}

func (s *Suite) TestCancellation() {
	owner := s.user("owner")
	e := s.event(owner.ID, 2)
	r := s.request(e, s.user("a").ID)

	confirmed := e
	confirmed.ConfirmedRequests = 1
	r.Status = domain.RequestConfirmed
	s.Require().NoError(s.store.SaveAdmission(s.ctx, confirmed, 0, []domain.ParticipationRequest{r}))

	released := confirmed
	released.ConfirmedRequests = 0
	r.Status = domain.RequestCanceled
	s.Require().NoError(s.store.SaveCancellation(s.ctx, r, released, 1))

	got, err := s.store.GetRequest(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(domain.RequestCanceled, got.Status)

	err = s.store.SaveCancellation(s.ctx, r, released, 0)
	s.ErrorIs(err, domain.ErrConcurrentUpdate)
}

func (s *Suite) TestReactions() {
	_, ok, err := s.store.FindReaction(s.ctx, 1, 2)
	s.Require().NoError(err)
	s.False(ok)

	like, err := s.store.InsertReaction(s.ctx, domain.Reaction{EventID: 1, UserID: 2, Type: domain.Like})
	s.Require().NoError(err)
	s.NotZero(like.ID)

	_, err = s.store.InsertReaction(s.ctx, domain.Reaction{EventID: 1, UserID: 2, Type: domain.Dislike})
	s.ErrorIs(err, domain.ErrConcurrentUpdate)

	swapped, err := s.store.SwapReaction(s.ctx, domain.Reaction{EventID: 1, UserID: 2, Type: domain.Dislike})
	s.Require().NoError(err)
	s.Equal(domain.Dislike, swapped.Type)

	likes, err := s.store.CountReactions(s.ctx, 1, domain.Like)
	s.Require().NoError(err)
	s.Zero(likes)
	dislikes, err := s.store.CountReactions(s.ctx, 1, domain.Dislike)
	s.Require().NoError(err)
	s.Equal(int64(1), dislikes)

	s.Require().NoError(s.store.DeleteReaction(s.ctx, 1, 2))
	_, ok, err = s.store.FindReaction(s.ctx, 1, 2)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *Suite) TestEdges() {
	alice := s.user("Alice")
	bob := s.user("bob")
	carol := s.user("Carol")

	saved, err := s.store.SaveEdges(s.ctx, domain.Subscription{
		SubscriberID:     alice.ID,
		TargetUserID:     bob.ID,
		FriendshipStatus: domain.FriendshipOneWay,
	})
	s.Require().NoError(err)
	s.Require().Len(saved, 1)
	s.Equal("bob", saved[0].Peer.Name)

	_, err = s.store.SaveEdges(s.ctx, domain.Subscription{
		SubscriberID:     alice.ID,
		TargetUserID:     bob.ID,
		FriendshipStatus: domain.FriendshipOneWay,
	})
	s.ErrorIs(err, domain.ErrAlreadySubscribed)

	reverse := saved[0]
	reverse.FriendshipStatus = domain.FriendshipMutual
	_, err = s.store.SaveEdges(s.ctx, domain.Subscription{
		SubscriberID:     bob.ID,
		TargetUserID:     alice.ID,
		FriendshipStatus: domain.FriendshipMutual,
	}, reverse)
	s.Require().NoError(err)

	_, err = s.store.SaveEdges(s.ctx, domain.Subscription{
		SubscriberID:     carol.ID,
		TargetUserID:     alice.ID,
		FriendshipStatus: domain.FriendshipOneWay,
	})
	s.Require().NoError(err)

	edge, ok, err := s.store.FindEdge(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(domain.FriendshipMutual, edge.FriendshipStatus)

	exists, err := s.store.ExistsEdge(s.ctx, bob.ID, carol.ID)
	s.Require().NoError(err)
	s.False(exists)

	subscribers, err := s.store.QueryEdges(s.ctx, domain.Incoming, domain.SubscriptionFilter{
		UserID:        alice.ID,
		Size:          10,
		SortField:     domain.SortByPeerName,
		SortDirection: domain.Desc,
	})
	s.Require().NoError(err)
	s.Require().Len(subscribers, 2)
	s.Equal("Carol", subscribers[0].Peer.Name)
	s.Equal("bob", subscribers[1].Peer.Name)

	filtered, err := s.store.QueryEdges(s.ctx, domain.Incoming, domain.SubscriptionFilter{
		UserID:           alice.ID,
		Size:             10,
		SortField:        domain.SortByPeerName,
		SortDirection:    domain.Asc,
		FriendshipStatus: domain.FriendshipOneWay,
		PeerName:         "car",
	})
	s.Require().NoError(err)
	s.Require().Len(filtered, 1)
	s.Equal(carol.ID, filtered[0].SubscriberID)

	page, err := s.store.QueryEdges(s.ctx, domain.Incoming, domain.SubscriptionFilter{
		UserID:        alice.ID,
		From:          1,
		Size:          1,
		SortField:     domain.SortByPeerName,
		SortDirection: domain.Asc,
	})
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("Carol", page[0].Peer.Name)

	n, err := s.store.CountEdges(s.ctx, alice.ID, domain.Incoming)
	s.Require().NoError(err)
	s.Equal(int64(2), n)
	n, err = s.store.CountEdges(s.ctx, alice.ID, domain.Outgoing)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	back, ok, err := s.store.FindEdge(s.ctx, bob.ID, alice.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	back.FriendshipStatus = domain.FriendshipOneWay
	s.Require().NoError(s.store.DeleteEdge(s.ctx, edge, &back))

	_, ok, err = s.store.FindEdge(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)
	s.False(ok)
	back, ok, err = s.store.FindEdge(s.ctx, bob.ID, alice.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(domain.FriendshipOneWay, back.FriendshipStatus)

	err = s.store.DeleteEdge(s.ctx, edge, nil)
	s.ErrorIs(err, domain.ErrNotSubscribed)
}

func (s *Suite) TestEdgeTimeFilterAndSort() {
	alice := s.user("Alice")
	bob := s.user("Bob")
	carol := s.user("Carol")
	early := time.Date(2024, 3, 1, 10, 20, 30, 5e8, time.UTC)
	late := early.Add(time.Hour)

	_, err := s.store.SaveEdges(s.ctx, domain.Subscription{
		SubscriberID:     bob.ID,
		TargetUserID:     alice.ID,
		FriendshipStatus: domain.FriendshipOneWay,
		SubscriptionTime: early,
	})
	s.Require().NoError(err)
	_, err = s.store.SaveEdges(s.ctx, domain.Subscription{
		SubscriberID:     carol.ID,
		TargetUserID:     alice.ID,
		FriendshipStatus: domain.FriendshipOneWay,
		SubscriptionTime: late,
	})
	s.Require().NoError(err)
	back, ok, err := s.store.FindEdge(s.ctx, carol.ID, alice.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	back.FriendshipStatus = domain.FriendshipMutual
	_, err = s.store.SaveEdges(s.ctx, domain.Subscription{
		SubscriberID:     alice.ID,
		TargetUserID:     carol.ID,
		FriendshipStatus: domain.FriendshipMutual,
	}, back)
	s.Require().NoError(err)

	at := func(t time.Time) *time.Time { return &t }
	tests := []struct {
		name   string
		filter domain.SubscriptionFilter
		want   []int64
	}{
		{
			name: "time inside the same second",
			filter: domain.SubscriptionFilter{
				SortField: domain.SortByPeerName, SortDirection: domain.Asc,
				SubscriptionTime: at(time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)),
			},
			want: []int64{bob.ID},
		},
		{
			name: "time one hour off",
			filter: domain.SubscriptionFilter{
				SortField: domain.SortByPeerName, SortDirection: domain.Asc,
				SubscriptionTime: at(time.Date(2024, 3, 1, 9, 20, 30, 0, time.UTC)),
			},
			want: []int64{},
		},
		{
			name: "later time",
			filter: domain.SubscriptionFilter{
				SortField: domain.SortByPeerName, SortDirection: domain.Asc,
				SubscriptionTime: at(time.Date(2024, 3, 1, 11, 20, 30, 0, time.UTC)),
			},
			want: []int64{carol.ID},
		},
		{
			name:   "newest first",
			filter: domain.SubscriptionFilter{SortField: domain.SortBySubscriptionTime, SortDirection: domain.Desc},
			want:   []int64{carol.ID, bob.ID},
		},
		{
			name:   "oldest first",
			filter: domain.SubscriptionFilter{SortField: domain.SortBySubscriptionTime, SortDirection: domain.Asc},
			want:   []int64{bob.ID, carol.ID},
		},
		{
			name:   "mutual first",
			filter: domain.SubscriptionFilter{SortField: domain.SortByFriendshipStatus, SortDirection: domain.Asc},
			want:   []int64{carol.ID, bob.ID},
		},
		{
			name:   "one way first",
			filter: domain.SubscriptionFilter{SortField: domain.SortByFriendshipStatus, SortDirection: domain.Desc},
			want:   []int64{bob.ID, carol.ID},
		},
	}
	for _, tt := range tests {
		tt.filter.UserID = alice.ID
		tt.filter.Size = 10
		edges, err := s.store.QueryEdges(s.ctx, domain.Incoming, tt.filter)
		s.Require().NoError(err, tt.name)
		got := make([]int64, 0, len(edges))
		for _, e := range edges {
			got = append(got, e.SubscriberID)
		}
		s.Equal(tt.want, got, tt.name)
	}
}

func (s *Suite) TestEdgeConsistency() {
	alice := s.user("Alice")
	bob := s.user("Bob")

	_, err := s.store.SaveEdges(s.ctx, domain.Subscription{
		SubscriberID:     alice.ID,
		TargetUserID:     bob.ID,
		FriendshipStatus: domain.FriendshipMutual,
	})
	s.ErrorIs(err, domain.ErrConcurrentUpdate, "mutual edge without reverse")

	saved, err := s.store.SaveEdges(s.ctx, domain.Subscription{
		SubscriberID:     alice.ID,
		TargetUserID:     bob.ID,
		FriendshipStatus: domain.FriendshipOneWay,
	})
	s.Require().NoError(err)
	forward := saved[0]

	_, err = s.store.SaveEdges(s.ctx, domain.Subscription{
		SubscriberID:     bob.ID,
		TargetUserID:     alice.ID,
		FriendshipStatus: domain.FriendshipOneWay,
	})
	s.ErrorIs(err, domain.ErrConcurrentUpdate, "one way edge over existing reverse")

	forward.FriendshipStatus = domain.FriendshipMutual
	saved, err = s.store.SaveEdges(s.ctx, domain.Subscription{
		SubscriberID:     bob.ID,
		TargetUserID:     alice.ID,
		FriendshipStatus: domain.FriendshipMutual,
	}, forward)
	s.Require().NoError(err)

	err = s.store.DeleteEdge(s.ctx, saved[0], nil)
	s.ErrorIs(err, domain.ErrConcurrentUpdate, "delete leaving reverse mutual")
	_, ok, err := s.store.FindEdge(s.ctx, bob.ID, alice.ID)
	s.Require().NoError(err)
	s.True(ok)

	carol := s.user("Carol")
	lone, err := s.store.SaveEdges(s.ctx, domain.Subscription{
		SubscriberID:     carol.ID,
		TargetUserID:     alice.ID,
		FriendshipStatus: domain.FriendshipOneWay,
	})
	s.Require().NoError(err)
	ghost := domain.Subscription{SubscriberID: alice.ID, TargetUserID: carol.ID, FriendshipStatus: domain.FriendshipOneWay}
	err = s.store.DeleteEdge(s.ctx, lone[0], &ghost)
	s.ErrorIs(err, domain.ErrConcurrentUpdate, "repair of missing reverse")
}

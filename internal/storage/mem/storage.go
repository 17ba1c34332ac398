// Package mem is a Storage kept in process memory. One lock guards all
// tables, which makes every call a transaction.
package mem

import (
	"context"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/goserg/eventhub/internal/domain"
	"github.com/goserg/eventhub/internal/normalize"
	"github.com/goserg/eventhub/internal/storage"
)

type edgeKey struct {
	subscriber int64
	target     int64
}

type reactionKey struct {
	event int64
	user  int64
}

type Storage struct {
	mu sync.RWMutex

	seq int64

	users     map[int64]domain.User
	events    map[int64]domain.Event
	requests  map[int64]domain.ParticipationRequest
	reactions map[reactionKey]domain.Reaction
	edges     map[edgeKey]domain.Subscription

	now func() time.Time
}

var _ storage.Storage = (*Storage)(nil)

func New() *Storage {
	return &Storage{
		users:     make(map[int64]domain.User),
		events:    make(map[int64]domain.Event),
		requests:  make(map[int64]domain.ParticipationRequest),
		reactions: make(map[reactionKey]domain.Reaction),
		edges:     make(map[edgeKey]domain.Subscription),
		now:       time.Now,
	}
}

func (s *Storage) Close() error { return nil }

func (s *Storage) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Storage) GetUser(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *Storage) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = s.nextID()
	} else if user.ID > s.seq {
		s.seq = user.ID
	}
	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = s.now()
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *Storage) GetEvent(_ context.Context, id int64) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return domain.Event{}, domain.ErrNotFound
	}
	return e, nil
}

func (s *Storage) CreateEvent(_ context.Context, event domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == 0 {
		event.ID = s.nextID()
	} else if event.ID > s.seq {
		s.seq = event.ID
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	s.events[event.ID] = event
	return event, nil
}

func (s *Storage) GetRequest(_ context.Context, id int64) (domain.ParticipationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return domain.ParticipationRequest{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Storage) FindRequestsByIDs(_ context.Context, ids []int64) ([]domain.ParticipationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make([]domain.ParticipationRequest, 0, len(ids))
	for _, id := range mapset.NewSet[int64](ids...).ToSlice() {
		if r, ok := s.requests[id]; ok {
			found = append(found, r)
		}
	}
	sortRequests(found)
	return found, nil
}

func (s *Storage) ListRequestsByEvent(_ context.Context, eventID int64) ([]domain.ParticipationRequest, error) {
	return s.listRequests(func(r domain.ParticipationRequest) bool { return r.EventID == eventID }), nil
}

func (s *Storage) ListRequestsByRequester(_ context.Context, requesterID int64) ([]domain.ParticipationRequest, error) {
	return s.listRequests(func(r domain.ParticipationRequest) bool { return r.RequesterID == requesterID }), nil
}

func (s *Storage) listRequests(match func(domain.ParticipationRequest) bool) []domain.ParticipationRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []domain.ParticipationRequest
	for _, r := range s.requests {
		if match(r) {
			list = append(list, r)
		}
	}
	sortRequests(list)
	return list
}

func sortRequests(list []domain.ParticipationRequest) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}

func (s *Storage) CreateRequest(_ context.Context, request domain.ParticipationRequest, event domain.Event, expectedConfirmed int) (domain.ParticipationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.events[event.ID]
	if !ok {
		return domain.ParticipationRequest{}, domain.ErrNotFound
	}
	if stored.ConfirmedRequests != expectedConfirmed {
		return domain.ParticipationRequest{}, domain.ErrConcurrentUpdate
	}
	request.ID = s.nextID()
	s.requests[request.ID] = request
	stored.ConfirmedRequests = event.ConfirmedRequests
	s.events[stored.ID] = stored
	return request, nil
}

func (s *Storage) SaveAdmission(_ context.Context, event domain.Event, expectedConfirmed int, requests []domain.ParticipationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.events[event.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.ConfirmedRequests != expectedConfirmed {
		return domain.ErrConcurrentUpdate
	}
	for _, r := range requests {
		current, ok := s.requests[r.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if current.Status != domain.RequestPending {
			return domain.ErrConcurrentUpdate
		}
	}
	for _, r := range requests {
		current := s.requests[r.ID]
		current.Status = r.Status
		s.requests[r.ID] = current
	}
	stored.ConfirmedRequests = event.ConfirmedRequests
	s.events[stored.ID] = stored
	return nil
}

func (s *Storage) SaveCancellation(_ context.Context, request domain.ParticipationRequest, event domain.Event, expectedConfirmed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.events[event.ID]
	if !ok {
		return domain.ErrNotFound
	}
	current, ok := s.requests[request.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.ConfirmedRequests != expectedConfirmed || current.Status == domain.RequestCanceled {
		return domain.ErrConcurrentUpdate
	}
	current.Status = request.Status
	s.requests[current.ID] = current
	stored.ConfirmedRequests = event.ConfirmedRequests
	s.events[stored.ID] = stored
	return nil
}

func (s *Storage) FindReaction(_ context.Context, eventID, userID int64) (domain.Reaction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reactions[reactionKey{event: eventID, user: userID}]
	return r, ok, nil
}

func (s *Storage) InsertReaction(_ context.Context, reaction domain.Reaction) (domain.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := reactionKey{event: reaction.EventID, user: reaction.UserID}
	if _, ok := s.reactions[key]; ok {
		return domain.Reaction{}, domain.ErrConcurrentUpdate
	}
	reaction.ID = s.nextID()
	s.reactions[key] = reaction
	return reaction, nil
}

func (s *Storage) DeleteReaction(_ context.Context, eventID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reactions, reactionKey{event: eventID, user: userID})
	return nil
}

func (s *Storage) SwapReaction(_ context.Context, next domain.Reaction) (domain.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next.ID = s.nextID()
	s.reactions[reactionKey{event: next.EventID, user: next.UserID}] = next
	return next, nil
}

func (s *Storage) CountReactions(_ context.Context, eventID int64, t domain.ReactionType) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for key, r := range s.reactions {
		if key.event == eventID && r.Type == t {
			n++
		}
	}
	return n, nil
}

func (s *Storage) FindEdge(_ context.Context, subscriberID, targetID int64) (domain.Subscription, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[edgeKey{subscriber: subscriberID, target: targetID}]
	if !ok {
		return domain.Subscription{}, false, nil
	}
	e.Peer = s.users[targetID]
	return e, true, nil
}

func (s *Storage) ExistsEdge(_ context.Context, subscriberID, targetID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.edges[edgeKey{subscriber: subscriberID, target: targetID}]
	return ok, nil
}

func (s *Storage) SaveEdges(_ context.Context, edges ...domain.Subscription) ([]domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range edges {
		key := edgeKey{subscriber: e.SubscriberID, target: e.TargetUserID}
		stored, ok := s.edges[key]
		if e.ID == 0 && ok {
			return nil, domain.ErrAlreadySubscribed
		}
		if e.ID == 0 {
			_, reverse := s.edges[edgeKey{subscriber: e.TargetUserID, target: e.SubscriberID}]
			if reverse != (e.FriendshipStatus == domain.FriendshipMutual) {
				return nil, domain.ErrConcurrentUpdate
			}
		}
		if e.ID != 0 && (!ok || stored.ID != e.ID) {
			return nil, domain.ErrNotFound
		}
	}
	saved := make([]domain.Subscription, 0, len(edges))
	for _, e := range edges {
		key := edgeKey{subscriber: e.SubscriberID, target: e.TargetUserID}
		if e.ID == 0 {
			e.ID = s.nextID()
			if e.SubscriptionTime.IsZero() {
				e.SubscriptionTime = s.now()
			}
		} else {
			stored := s.edges[key]
			stored.FriendshipStatus = e.FriendshipStatus
			e = stored
		}
		e.Peer = domain.User{}
		s.edges[key] = e
		e.Peer = s.users[e.TargetUserID]
		saved = append(saved, e)
	}
	return saved, nil
}

func (s *Storage) DeleteEdge(_ context.Context, edge domain.Subscription, repaired *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := edgeKey{subscriber: edge.SubscriberID, target: edge.TargetUserID}
	if _, ok := s.edges[key]; !ok {
		return domain.ErrNotSubscribed
	}
	rkey := edgeKey{subscriber: edge.TargetUserID, target: edge.SubscriberID}
	reverse, ok := s.edges[rkey]
	if repaired != nil && !ok {
		return domain.ErrConcurrentUpdate
	}
	if repaired == nil && ok && reverse.FriendshipStatus == domain.FriendshipMutual {
		return domain.ErrConcurrentUpdate
	}
	if repaired != nil {
		reverse.FriendshipStatus = repaired.FriendshipStatus
		s.edges[rkey] = reverse
	}
	delete(s.edges, key)
	return nil
}

func (s *Storage) QueryEdges(_ context.Context, direction domain.Direction, filter domain.SubscriptionFilter) ([]domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []domain.Subscription
	for _, e := range s.edges {
		peerID := e.TargetUserID
		owner := e.SubscriberID
		if direction == domain.Incoming {
			peerID, owner = e.SubscriberID, e.TargetUserID
		}
		if owner != filter.UserID {
			continue
		}
		e.Peer = s.users[peerID]
		if filter.PeerName != "" && !normalize.Contains(e.Peer.Name, filter.PeerName) {
			continue
		}
		if filter.FriendshipStatus != "" && e.FriendshipStatus != filter.FriendshipStatus {
			continue
		}
		if filter.SubscriptionTime != nil && !sameSecond(e.SubscriptionTime, *filter.SubscriptionTime) {
			continue
		}
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		c := compareEdges(list[i], list[j], filter.SortField)
		if c == 0 {
			return list[i].ID < list[j].ID
		}
		if filter.SortDirection == domain.Desc {
			return c > 0
		}
		return c < 0
	})
	if filter.From >= len(list) {
		return []domain.Subscription{}, nil
	}
	end := filter.From + filter.Size
	if end > len(list) {
		end = len(list)
	}
	return list[filter.From:end], nil
}

// sameSecond matches subscription times the way listing filters are written,
// with second precision.
func sameSecond(t, filter time.Time) bool {
	from := filter.Truncate(time.Second)
	return !t.Before(from) && t.Before(from.Add(time.Second))
}

func compareEdges(a, b domain.Subscription, field domain.SortField) int {
	switch field {
	case domain.SortBySubscriptionTime:
		switch {
		case a.SubscriptionTime.Before(b.SubscriptionTime):
			return -1
		case a.SubscriptionTime.After(b.SubscriptionTime):
			return 1
		}
		return 0
	case domain.SortByFriendshipStatus:
		return compareStrings(string(a.FriendshipStatus), string(b.FriendshipStatus))
	default:
		return compareStrings(normalize.Name(a.Peer.Name), normalize.Name(b.Peer.Name))
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (s *Storage) CountEdges(_ context.Context, userID int64, direction domain.Direction) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for key := range s.edges {
		if (direction == domain.Outgoing && key.subscriber == userID) ||
			(direction == domain.Incoming && key.target == userID) {
			n++
		}
	}
	return n, nil
}

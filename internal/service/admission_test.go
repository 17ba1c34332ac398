package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/goserg/eventhub/internal/domain"
	"github.com/goserg/eventhub/internal/storage/mem"
)

type AdmissionSuite struct {
	suite.Suite
	ctx       context.Context
	store     *mem.Storage
	svc       *AdmissionService
	initiator domain.User
}

func TestAdmission(t *testing.T) {
	suite.Run(t, &AdmissionSuite{})
}

func (s *AdmissionSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = mem.New()
	s.svc = NewAdmissionService(s.store, s.store)
	s.initiator = s.user("initiator")
}

func (s *AdmissionSuite) user(name string) domain.User {
	u, err := s.store.CreateUser(s.ctx, domain.User{Name: name, AllowSubscriptions: true})
	s.Require().NoError(err)
	return u
}

func (s *AdmissionSuite) event(limit int, moderation bool) domain.Event {
	e, err := s.store.CreateEvent(s.ctx, domain.Event{
		Title:             "meetup",
		InitiatorID:       s.initiator.ID,
		ParticipantLimit:  limit,
		RequestModeration: moderation,
	})
	s.Require().NoError(err)
	return e
}

// pending submits one request per new user and returns their ids in order.
func (s *AdmissionSuite) pending(eventID int64, n int) []int64 {
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		u := s.user("guest")
		r, err := s.svc.Submit(s.ctx, u.ID, eventID)
		s.Require().NoError(err)
		s.Require().Equal(domain.RequestPending, r.Status)
		ids = append(ids, r.ID)
	}
	return ids
}

func ids(list []domain.ParticipationRequest) []int64 {
	out := make([]int64, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func (s *AdmissionSuite) TestConfirmInOrderUntilLimit() {
	e := s.event(1, true)
	reqs := s.pending(e.ID, 3)

	res, err := s.svc.UpdateStatuses(s.ctx, s.initiator.ID, e.ID, domain.StatusUpdate{
		RequestIDs: reqs,
		Status:     domain.RequestConfirmed,
	})
	s.Require().NoError(err)
	s.Equal([]int64{reqs[0]}, ids(res.Confirmed))
	s.Equal([]int64{reqs[1], reqs[2]}, ids(res.Rejected))

	got, err := s.store.GetEvent(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(1, got.ConfirmedRequests)

	for i, id := range reqs {
		r, err := s.store.GetRequest(s.ctx, id)
		s.Require().NoError(err)
		if i == 0 {
			s.Equal(domain.RequestConfirmed, r.Status)
		} else {
			s.Equal(domain.RequestRejected, r.Status)
		}
	}
}

func (s *AdmissionSuite) TestRejectBatch() {
	e := s.event(5, true)
	reqs := s.pending(e.ID, 2)

	res, err := s.svc.UpdateStatuses(s.ctx, s.initiator.ID, e.ID, domain.StatusUpdate{
		RequestIDs: reqs,
		Status:     domain.RequestRejected,
	})
	s.Require().NoError(err)
	s.Empty(res.Confirmed)
	s.NotNil(res.Confirmed)
	s.Equal(reqs, ids(res.Rejected))

	got, err := s.store.GetEvent(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(0, got.ConfirmedRequests)
}

func (s *AdmissionSuite) TestDuplicateIDsCollapse() {
	e := s.event(5, true)
	reqs := s.pending(e.ID, 2)

	res, err := s.svc.UpdateStatuses(s.ctx, s.initiator.ID, e.ID, domain.StatusUpdate{
		RequestIDs: []int64{reqs[1], reqs[0], reqs[1]},
		Status:     domain.RequestConfirmed,
	})
	s.Require().NoError(err)
	s.Equal([]int64{reqs[1], reqs[0]}, ids(res.Confirmed))

	got, err := s.store.GetEvent(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(2, got.ConfirmedRequests)
}

func (s *AdmissionSuite) TestNonPendingFailsWithoutWrites() {
	e := s.event(5, true)
	reqs := s.pending(e.ID, 3)

	_, err := s.svc.UpdateStatuses(s.ctx, s.initiator.ID, e.ID, domain.StatusUpdate{
		RequestIDs: reqs[:1],
		Status:     domain.RequestConfirmed,
	})
	s.Require().NoError(err)

	_, err = s.svc.UpdateStatuses(s.ctx, s.initiator.ID, e.ID, domain.StatusUpdate{
		RequestIDs: []int64{reqs[1], reqs[0], reqs[2]},
		Status:     domain.RequestConfirmed,
	})
	s.ErrorIs(err, domain.ErrInvalidRequestState)

	for _, id := range reqs[1:] {
		r, err := s.store.GetRequest(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(domain.RequestPending, r.Status)
	}
	got, err := s.store.GetEvent(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(1, got.ConfirmedRequests)
}

func (s *AdmissionSuite) TestPreconditions() {
	moderated := s.event(2, true)
	open := s.event(2, false)
	unlimited := s.event(0, true)
	other := s.event(2, true)
	reqs := s.pending(moderated.ID, 1)
	foreign := s.pending(other.ID, 1)
	stranger := s.user("stranger")

	tests := []struct {
		name    string
		userID  int64
		eventID int64
		update  domain.StatusUpdate
		wantErr error
	}{
		{
			name:    "unknown event",
			userID:  s.initiator.ID,
			eventID: 9999,
			update:  domain.StatusUpdate{RequestIDs: reqs, Status: domain.RequestConfirmed},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "not initiator",
			userID:  stranger.ID,
			eventID: moderated.ID,
			update:  domain.StatusUpdate{RequestIDs: reqs, Status: domain.RequestConfirmed},
			wantErr: domain.ErrNotInitiator,
		},
		{
			name:    "moderation off",
			userID:  s.initiator.ID,
			eventID: open.ID,
			update:  domain.StatusUpdate{RequestIDs: reqs, Status: domain.RequestConfirmed},
			wantErr: domain.ErrModerationDisabled,
		},
		{
			name:    "no limit",
			userID:  s.initiator.ID,
			eventID: unlimited.ID,
			update:  domain.StatusUpdate{RequestIDs: reqs, Status: domain.RequestConfirmed},
			wantErr: domain.ErrModerationDisabled,
		},
		{
			name:    "pending is not a decision",
			userID:  s.initiator.ID,
			eventID: moderated.ID,
			update:  domain.StatusUpdate{RequestIDs: reqs, Status: domain.RequestPending},
			wantErr: domain.ErrInvalidStatus,
		},
		{
			name:    "empty batch",
			userID:  s.initiator.ID,
			eventID: moderated.ID,
			update:  domain.StatusUpdate{Status: domain.RequestConfirmed},
			wantErr: domain.ErrInvalidBatch,
		},
		{
			name:    "request of another event",
			userID:  s.initiator.ID,
			eventID: moderated.ID,
			update:  domain.StatusUpdate{RequestIDs: append(reqs, foreign...), Status: domain.RequestConfirmed},
			wantErr: domain.ErrInvalidBatch,
		},
		{
			name:    "missing request",
			userID:  s.initiator.ID,
			eventID: moderated.ID,
			update:  domain.StatusUpdate{RequestIDs: []int64{reqs[0], 12345}, Status: domain.RequestConfirmed},
			wantErr: domain.ErrInvalidBatch,
		},
	}
	for _, tt := range tests {
		tt := tt
		s.Run(tt.name, func() {
			_, err := s.svc.UpdateStatuses(s.ctx, tt.userID, tt.eventID, tt.update)
			s.ErrorIs(err, tt.wantErr)
		})
	}

	r, err := s.store.GetRequest(s.ctx, reqs[0])
	s.Require().NoError(err)
	s.Equal(domain.RequestPending, r.Status)
}

func (s *AdmissionSuite) TestConcurrentBatchesRespectLimit() {
	const limit = 5
	e := s.event(limit, true)
	reqs := s.pending(e.ID, 40)

	var wg sync.WaitGroup
	for i := 0; i < len(reqs); i += 4 {
		batch := reqs[i : i+4]
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.UpdateStatuses(s.ctx, s.initiator.ID, e.ID, domain.StatusUpdate{
				RequestIDs: batch,
				Status:     domain.RequestConfirmed,
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.store.GetEvent(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(limit, got.ConfirmedRequests)

	all, err := s.store.ListRequestsByEvent(s.ctx, e.ID)
	s.Require().NoError(err)
	confirmed := 0
	for _, r := range all {
		s.NotEqual(domain.RequestPending, r.Status)
		if r.Status == domain.RequestConfirmed {
			confirmed++
		}
	}
	s.Equal(got.ConfirmedRequests, confirmed)
}

func (s *AdmissionSuite) TestSubmit() {
	moderated := s.event(1, true)
	open := s.event(1, false)
	guest := s.user("guest")

	r, err := s.svc.Submit(s.ctx, guest.ID, open.ID)
	s.Require().NoError(err)
	s.Equal(domain.RequestConfirmed, r.Status)
	got, err := s.store.GetEvent(s.ctx, open.ID)
	s.Require().NoError(err)
	s.Equal(1, got.ConfirmedRequests)

	_, err = s.svc.Submit(s.ctx, guest.ID, open.ID)
	s.ErrorIs(err, domain.ErrDuplicateRequest)

	late := s.user("late")
	_, err = s.svc.Submit(s.ctx, late.ID, open.ID)
	s.ErrorIs(err, domain.ErrParticipantLimitReached)

	_, err = s.svc.Submit(s.ctx, s.initiator.ID, moderated.ID)
	s.ErrorIs(err, domain.ErrSelfParticipation)

	_, err = s.svc.Submit(s.ctx, 9999, moderated.ID)
	s.ErrorIs(err, domain.ErrNotFound)

	_, err = s.svc.Submit(s.ctx, guest.ID, 9999)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *AdmissionSuite) TestCancel() {
	e := s.event(1, true)
	reqs := s.pending(e.ID, 2)
	_, err := s.svc.UpdateStatuses(s.ctx, s.initiator.ID, e.ID, domain.StatusUpdate{
		RequestIDs: reqs[:1],
		Status:     domain.RequestConfirmed,
	})
	s.Require().NoError(err)

	first, err := s.store.GetRequest(s.ctx, reqs[0])
	s.Require().NoError(err)

	_, err = s.svc.Cancel(s.ctx, s.initiator.ID, first.ID)
	s.ErrorIs(err, domain.ErrNotRequester)

	canceled, err := s.svc.Cancel(s.ctx, first.RequesterID, first.ID)
	s.Require().NoError(err)
	s.Equal(domain.RequestCanceled, canceled.Status)

	got, err := s.store.GetEvent(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(0, got.ConfirmedRequests)

	_, err = s.svc.Cancel(s.ctx, first.RequesterID, first.ID)
	s.ErrorIs(err, domain.ErrInvalidRequestState)

	// the released seat goes to the next confirmation
	res, err := s.svc.UpdateStatuses(s.ctx, s.initiator.ID, e.ID, domain.StatusUpdate{
		RequestIDs: reqs[1:],
		Status:     domain.RequestConfirmed,
	})
	s.Require().NoError(err)
	s.Len(res.Confirmed, 1)
}

func (s *AdmissionSuite) TestListRequests() {
	e := s.event(3, true)
	reqs := s.pending(e.ID, 2)

	list, err := s.svc.ListEventRequests(s.ctx, s.initiator.ID, e.ID)
	s.Require().NoError(err)
	s.Equal(reqs, ids(list))

	_, err = s.svc.ListEventRequests(s.ctx, 9999, e.ID)
	s.ErrorIs(err, domain.ErrNotInitiator)

	first, err := s.store.GetRequest(s.ctx, reqs[0])
	s.Require().NoError(err)
	own, err := s.svc.ListUserRequests(s.ctx, first.RequesterID)
	s.Require().NoError(err)
	s.Equal([]int64{first.ID}, ids(own))
}

func Test_admit(t *testing.T) {
	pending := func(ids ...int64) []domain.ParticipationRequest {
		out := make([]domain.ParticipationRequest, 0, len(ids))
		for _, id := range ids {
			out = append(out, domain.ParticipationRequest{ID: id, Status: domain.RequestPending})
		}
		return out
	}
	tests := []struct {
		name          string
		limit         int
		confirmed     int
		status        domain.RequestStatus
		batch         []domain.ParticipationRequest
		wantConfirmed []int64
		wantRejected  []int64
		wantCounter   int
	}{
		{
			name:          "capacity one",
			limit:         3,
			confirmed:     2,
			status:        domain.RequestConfirmed,
			batch:         pending(1, 2, 3),
			wantConfirmed: []int64{1},
			wantRejected:  []int64{2, 3},
			wantCounter:   3,
		},
		{
			name:          "enough room",
			limit:         10,
			status:        domain.RequestConfirmed,
			batch:         pending(4, 5),
			wantConfirmed: []int64{4, 5},
			wantRejected:  []int64{},
			wantCounter:   2,
		},
		{
			name:          "full",
			limit:         1,
			confirmed:     1,
			status:        domain.RequestConfirmed,
			batch:         pending(6),
			wantConfirmed: []int64{},
			wantRejected:  []int64{6},
			wantCounter:   1,
		},
		{
			name:          "reject keeps counter",
			limit:         4,
			confirmed:     1,
			status:        domain.RequestRejected,
			batch:         pending(7, 8),
			wantConfirmed: []int64{},
			wantRejected:  []int64{7, 8},
			wantCounter:   1,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			event := domain.Event{ParticipantLimit: tt.limit, RequestModeration: true, ConfirmedRequests: tt.confirmed}
			res := admit(&event, tt.batch, tt.status)
			require.NotNil(t, res.Confirmed)
			require.NotNil(t, res.Rejected)
			assert.Equal(t, tt.wantConfirmed, ids(res.Confirmed))
			assert.Equal(t, tt.wantRejected, ids(res.Rejected))
			assert.Equal(t, tt.wantCounter, event.ConfirmedRequests)
			for _, r := range res.Confirmed {
				assert.Equal(t, domain.RequestConfirmed, r.Status)
			}
			for _, r := range res.Rejected {
				assert.Equal(t, domain.RequestRejected, r.Status)
			}
		})
	}
}

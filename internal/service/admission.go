package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/goserg/eventhub/internal/domain"
	"github.com/goserg/eventhub/internal/keylock"
	"github.com/goserg/eventhub/internal/storage"
)

// maxAttempts bounds the read-decide-write retries after the store reports a
// concurrent counter update.
const maxAttempts = 3

type AdmissionService struct {
	events storage.EventStorage
	users  storage.UserStorage
	locks  *keylock.Locker
	now    func() time.Time
}

func NewAdmissionService(events storage.EventStorage, users storage.UserStorage) *AdmissionService {
	return &AdmissionService{
		events: events,
		users:  users,
		locks:  keylock.New(),
		now:    time.Now,
	}
}

func eventKey(id int64) string {
	return "event:" + strconv.FormatInt(id, 10)
}

func (s *AdmissionService) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("get event %d: %w", id, err)
	}
	return event, nil
}

func (s *AdmissionService) GetUser(ctx context.Context, id int64) (domain.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// UpdateStatuses confirms or rejects a batch of pending requests of the event.
// Requests are decided in the given order: once the participant limit is
// reached the rest of a confirmation batch is rejected.
func (s *AdmissionService) UpdateStatuses(ctx context.Context, userID, eventID int64, update domain.StatusUpdate) (domain.AdmissionResult, error) {
	if update.Status != domain.RequestConfirmed && update.Status != domain.RequestRejected {
		return domain.AdmissionResult{}, domain.ErrInvalidStatus
	}
	unlock := s.locks.Lock(eventKey(eventID))
	defer unlock()

	return retryOnConflict(func() (domain.AdmissionResult, error) {
		return s.updateStatuses(ctx, userID, eventID, update)
	})
}

func (s *AdmissionService) updateStatuses(ctx context.Context, userID, eventID int64, update domain.StatusUpdate) (domain.AdmissionResult, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return domain.AdmissionResult{}, err
	}
	if event.InitiatorID != userID {
		return domain.AdmissionResult{}, domain.ErrNotInitiator
	}
	if !event.Moderated() {
		return domain.AdmissionResult{}, domain.ErrModerationDisabled
	}

	batch, err := s.loadBatch(ctx, eventID, update.RequestIDs)
	if err != nil {
		return domain.AdmissionResult{}, err
	}
	for _, r := range batch {
		if r.Status != domain.RequestPending {
			return domain.AdmissionResult{}, fmt.Errorf("request %d is %s: %w", r.ID, r.Status, domain.ErrInvalidRequestState)
		}
	}

	expected := event.ConfirmedRequests
	result := admit(&event, batch, update.Status)

	decided := make([]domain.ParticipationRequest, 0, len(batch))
	decided = append(decided, result.Confirmed...)
	decided = append(decided, result.Rejected...)
	if err := s.events.SaveAdmission(ctx, event, expected, decided); err != nil {
		return domain.AdmissionResult{}, fmt.Errorf("save admission for event %d: %w", eventID, err)
	}
	return result, nil
}

// loadBatch resolves ids in caller order. Repeated ids keep their first position.
func (s *AdmissionService) loadBatch(ctx context.Context, eventID int64, ids []int64) ([]domain.ParticipationRequest, error) {
	ordered := make([]int64, 0, len(ids))
	seen := mapset.NewThreadUnsafeSet[int64]()
	for _, id := range ids {
		if seen.Contains(id) {
			continue
		}
		seen.Add(id)
		ordered = append(ordered, id)
	}
	if len(ordered) == 0 {
		return nil, domain.ErrInvalidBatch
	}

	found, err := s.events.FindRequestsByIDs(ctx, ordered)
	if err != nil {
		return nil, fmt.Errorf("find requests: %w", err)
	}
	byID := make(map[int64]domain.ParticipationRequest, len(found))
	for _, r := range found {
		if r.EventID == eventID {
			byID[r.ID] = r
		}
	}
	batch := make([]domain.ParticipationRequest, 0, len(ordered))
	for _, id := range ordered {
		r, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("request %d: %w", id, domain.ErrInvalidBatch)
		}
		batch = append(batch, r)
	}
	return batch, nil
}

// admit applies status to every request of the batch and moves the event
// counter. The batch must contain only pending requests.
func admit(event *domain.Event, batch []domain.ParticipationRequest, status domain.RequestStatus) domain.AdmissionResult {
	result := domain.AdmissionResult{
		Confirmed: []domain.ParticipationRequest{},
		Rejected:  []domain.ParticipationRequest{},
	}
	for _, r := range batch {
		if status == domain.RequestConfirmed && event.ConfirmedRequests < event.ParticipantLimit {
			r.Status = domain.RequestConfirmed
			event.ConfirmedRequests++
			result.Confirmed = append(result.Confirmed, r)
			continue
		}
		r.Status = domain.RequestRejected
		result.Rejected = append(result.Rejected, r)
	}
	return result
}

// Submit creates a participation request. Events without moderation or
// without a limit confirm it at once.
func (s *AdmissionService) Submit(ctx context.Context, requesterID, eventID int64) (domain.ParticipationRequest, error) {
	if _, err := s.users.GetUser(ctx, requesterID); err != nil {
		return domain.ParticipationRequest{}, fmt.Errorf("get user %d: %w", requesterID, err)
	}
	unlock := s.locks.Lock(eventKey(eventID))
	defer unlock()

	return retryOnConflict(func() (domain.ParticipationRequest, error) {
		return s.submit(ctx, requesterID, eventID)
	})
}

func (s *AdmissionService) submit(ctx context.Context, requesterID, eventID int64) (domain.ParticipationRequest, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return domain.ParticipationRequest{}, err
	}
	if event.InitiatorID == requesterID {
		return domain.ParticipationRequest{}, domain.ErrSelfParticipation
	}
	own, err := s.events.ListRequestsByRequester(ctx, requesterID)
	if err != nil {
		return domain.ParticipationRequest{}, fmt.Errorf("list requests of user %d: %w", requesterID, err)
	}
	for _, r := range own {
		if r.EventID == eventID && r.Status != domain.RequestCanceled {
			return domain.ParticipationRequest{}, domain.ErrDuplicateRequest
		}
	}
	if !event.HasFreeSeats() {
		return domain.ParticipationRequest{}, domain.ErrParticipantLimitReached
	}

	expected := event.ConfirmedRequests
	request := domain.ParticipationRequest{
		EventID:     eventID,
		RequesterID: requesterID,
		Status:      domain.RequestPending,
		Created:     s.now(),
	}
	if !event.Moderated() {
		request.Status = domain.RequestConfirmed
		event.ConfirmedRequests++
	}
	request, err = s.events.CreateRequest(ctx, request, event, expected)
	if err != nil {
		return domain.ParticipationRequest{}, fmt.Errorf("create request: %w", err)
	}
	return request, nil
}

// Cancel withdraws the requester's own request, releasing its seat if it was
// confirmed.
func (s *AdmissionService) Cancel(ctx context.Context, requesterID, requestID int64) (domain.ParticipationRequest, error) {
	request, err := s.events.GetRequest(ctx, requestID)
	if err != nil {
		return domain.ParticipationRequest{}, fmt.Errorf("get request %d: %w", requestID, err)
	}
	if request.RequesterID != requesterID {
		return domain.ParticipationRequest{}, domain.ErrNotRequester
	}
	unlock := s.locks.Lock(eventKey(request.EventID))
	defer unlock()

	return retryOnConflict(func() (domain.ParticipationRequest, error) {
		return s.cancel(ctx, requestID)
	})
}

func (s *AdmissionService) cancel(ctx context.Context, requestID int64) (domain.ParticipationRequest, error) {
	request, err := s.events.GetRequest(ctx, requestID)
	if err != nil {
		return domain.ParticipationRequest{}, fmt.Errorf("get request %d: %w", requestID, err)
	}
	if request.Status == domain.RequestCanceled || request.Status == domain.RequestRejected {
		return domain.ParticipationRequest{}, fmt.Errorf("request %d is %s: %w", request.ID, request.Status, domain.ErrInvalidRequestState)
	}
	event, err := s.GetEvent(ctx, request.EventID)
	if err != nil {
		return domain.ParticipationRequest{}, err
	}
	expected := event.ConfirmedRequests
	if request.Status == domain.RequestConfirmed && event.ConfirmedRequests > 0 {
		event.ConfirmedRequests--
	}
	request.Status = domain.RequestCanceled
	if err := s.events.SaveCancellation(ctx, request, event, expected); err != nil {
		return domain.ParticipationRequest{}, fmt.Errorf("cancel request %d: %w", requestID, err)
	}
	return request, nil
}

func (s *AdmissionService) ListEventRequests(ctx context.Context, userID, eventID int64) ([]domain.ParticipationRequest, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.InitiatorID != userID {
		return nil, domain.ErrNotInitiator
	}
	return s.events.ListRequestsByEvent(ctx, eventID)
}

func (s *AdmissionService) ListUserRequests(ctx context.Context, userID int64) ([]domain.ParticipationRequest, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return s.events.ListRequestsByRequester(ctx, userID)
}

func retryOnConflict[T any](fn func() (T, error)) (T, error) {
	var (
		value T
		err   error
	)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		value, err = fn()
		if !errors.Is(err, domain.ErrConcurrentUpdate) {
			return value, err
		}
	}
	return value, err
}

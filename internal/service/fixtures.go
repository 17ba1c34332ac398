package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goserg/eventhub/internal/domain"
	"github.com/goserg/eventhub/internal/storage"
)

const fixtureVersion = 1

type fixtureUser struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	AllowSubscriptions *bool  `json:"allowSubscriptions"`
}

type fixtureEvent struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	InitiatorID       int64  `json:"initiatorId"`
	ParticipantLimit  int    `json:"participantLimit"`
	RequestModeration bool   `json:"requestModeration"`
}

type fixtures struct {
	Version int            `json:"version"`
	Users   []fixtureUser  `json:"users"`
	Events  []fixtureEvent `json:"events"`
}

// FixtureService seeds users and events, which are managed outside this service.
type FixtureService struct {
	users  storage.UserStorage
	events storage.EventStorage
}

func NewFixtureService(users storage.UserStorage, events storage.EventStorage) *FixtureService {
	return &FixtureService{
		users:  users,
		events: events,
	}
}

// Import stores every user and event of data. Rows that already exist are
// skipped so a seed file can be applied on each start.
func (s *FixtureService) Import(ctx context.Context, data []byte) (int, error) {
	var in fixtures
	if err := json.Unmarshal(data, &in); err != nil {
		return 0, err
	}
	if in.Version != fixtureVersion {
		return 0, errors.New("invalid fixture file version")
	}
	imported := 0
	now := time.Now()
	for _, u := range in.Users {
		if u.ID != 0 {
			if _, err := s.users.GetUser(ctx, u.ID); err == nil {
				continue
			} else if !errors.Is(err, domain.ErrNotFound) {
				return imported, err
			}
		}
		allow := true
		if u.AllowSubscriptions != nil {
			allow = *u.AllowSubscriptions
		}
		_, err := s.users.CreateUser(ctx, domain.User{
			ID:                 u.ID,
			Name:               u.Name,
			Email:              u.Email,
			AllowSubscriptions: allow,
			RegisteredAt:       now,
		})
		if err != nil {
			return imported, fmt.Errorf("import user %q: %w", u.Name, err)
		}
		imported++
	}
	for _, e := range in.Events {
		if e.ID != 0 {
			if _, err := s.events.GetEvent(ctx, e.ID); err == nil {
				continue
			} else if !errors.Is(err, domain.ErrNotFound) {
				return imported, err
			}
		}
		if e.ParticipantLimit < 0 {
			return imported, fmt.Errorf("event %q: negative participant limit", e.Title)
		}
		if _, err := s.users.GetUser(ctx, e.InitiatorID); err != nil {
			return imported, fmt.Errorf("event %q initiator %d: %w", e.Title, e.InitiatorID, err)
		}
		_, err := s.events.CreateEvent(ctx, domain.Event{
			ID:                e.ID,
			Title:             e.Title,
			InitiatorID:       e.InitiatorID,
			ParticipantLimit:  e.ParticipantLimit,
			RequestModeration: e.RequestModeration,
			CreatedAt:         now,
		})
		if err != nil {
			return imported, fmt.Errorf("import event %q: %w", e.Title, err)
		}
		imported++
	}
	return imported, nil
}

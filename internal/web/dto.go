package web

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/goserg/eventhub/internal/domain"
)

var validate = validator.New()

type statusUpdateRequest struct {
	RequestIDs []int64 `json:"requestIds" validate:"required,dive,gt=0"`
	Status     string  `json:"status" validate:"required"`
}

func (r statusUpdateRequest) toDomain() domain.StatusUpdate {
	return domain.StatusUpdate{
		RequestIDs: r.RequestIDs,
		Status:     domain.RequestStatus(r.Status),
	}
}

type subscribeRequest struct {
	TargetUserID int64 `json:"targetUserId" validate:"required,gt=0"`
}

type requestDTO struct {
	ID        int64  `json:"id"`
	Event     int64  `json:"event"`
	Requester int64  `json:"requester"`
	Status    string `json:"status"`
	Created   string `json:"created"`
}

func newRequestDTO(r domain.ParticipationRequest) requestDTO {
	return requestDTO{
		ID:        r.ID,
		Event:     r.EventID,
		Requester: r.RequesterID,
		Status:    string(r.Status),
		Created:   formatTime(r.Created),
	}
}

func newRequestDTOs(list []domain.ParticipationRequest) []requestDTO {
	out := make([]requestDTO, 0, len(list))
	for _, r := range list {
		out = append(out, newRequestDTO(r))
	}
	return out
}

type admissionResultDTO struct {
	ConfirmedRequests []requestDTO `json:"confirmedRequests"`
	RejectedRequests  []requestDTO `json:"rejectedRequests"`
}

type reactionDTO struct {
	ID      int64  `json:"id"`
	EventID int64  `json:"eventId"`
	UserID  int64  `json:"userId"`
	Type    string `json:"type"`
	Created string `json:"created"`
}

type reactionResultDTO struct {
	Reaction *reactionDTO `json:"reaction"`
	Removed  bool         `json:"removed"`
}

func newReactionResultDTO(res domain.ReactionResult) reactionResultDTO {
	out := reactionResultDTO{Removed: res.Removed}
	if r := res.Reaction; r != nil {
		out.Reaction = &reactionDTO{
			ID:      r.ID,
			EventID: r.EventID,
			UserID:  r.UserID,
			Type:    string(r.Type),
			Created: formatTime(r.Created),
		}
	}
	return out
}

type ratingDTO struct {
	EventID  int64 `json:"eventId"`
	Likes    int64 `json:"likes"`
	Dislikes int64 `json:"dislikes"`
	Rating   int64 `json:"rating"`
}

type userShortDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type subscriptionDTO struct {
	ID               int64        `json:"id"`
	SubscriberID     int64        `json:"subscriberId"`
	TargetUserID     int64        `json:"targetUserId"`
	User             userShortDTO `json:"user"`
	SubscriptionTime string       `json:"subscriptionTime"`
	UnsubscribeTime  *string      `json:"unsubscribeTime,omitempty"`
	FriendshipStatus string       `json:"friendshipStatus"`
}

func newSubscriptionDTO(s domain.Subscription) subscriptionDTO {
	out := subscriptionDTO{
		ID:               s.ID,
		SubscriberID:     s.SubscriberID,
		TargetUserID:     s.TargetUserID,
		User:             userShortDTO{ID: s.Peer.ID, Name: s.Peer.Name},
		SubscriptionTime: formatTime(s.SubscriptionTime),
		FriendshipStatus: string(s.FriendshipStatus),
	}
	if s.UnsubscribeTime != nil {
		t := formatTime(*s.UnsubscribeTime)
		out.UnsubscribeTime = &t
	}
	return out
}

func newSubscriptionDTOs(list []domain.Subscription) []subscriptionDTO {
	out := make([]subscriptionDTO, 0, len(list))
	for _, s := range list {
		out = append(out, newSubscriptionDTO(s))
	}
	return out
}

type statusDTO struct {
	FriendshipStatus string  `json:"friendshipStatus"`
	SubscriptionTime *string `json:"subscriptionTime"`
}

type countDTO struct {
	Subscriptions int64 `json:"subscriptions"`
	Subscribers   int64 `json:"subscribers"`
}

func formatTime(t time.Time) string {
	return t.Local().Format(timeLayout)
}

package sqlite

import (
	"github.com/goserg/eventhub/gen/model"
	"github.com/goserg/eventhub/internal/domain"
)

func convertUserToDomain(user model.Users) domain.User {
	return domain.User{
		ID:                 user.ID,
		Name:               user.Name,
		Email:              user.Email,
		AllowSubscriptions: user.AllowSubscriptions,
		RegisteredAt:       user.CreatedAt,
	}
}

func convertUserFromDomain(user domain.User) model.Users {
	return model.Users{
		ID:                 user.ID,
		Name:               user.Name,
		Email:              user.Email,
		AllowSubscriptions: user.AllowSubscriptions,
		CreatedAt:          user.RegisteredAt.UTC(),
	}
}

func convertEventToDomain(event model.Events) domain.Event {
	return domain.Event{
		ID:                event.ID,
		Title:             event.Title,
		InitiatorID:       event.InitiatorID,
		ParticipantLimit:  int(event.ParticipantLimit),
		RequestModeration: event.RequestModeration,
		ConfirmedRequests: int(event.ConfirmedRequests),
		CreatedAt:         event.CreatedAt,
	}
}

func convertEventFromDomain(event domain.Event) model.Events {
	return model.Events{
		ID:                event.ID,
		Title:             event.Title,
		InitiatorID:       event.InitiatorID,
		ParticipantLimit:  int64(event.ParticipantLimit),
		RequestModeration: event.RequestModeration,
		ConfirmedRequests: int64(event.ConfirmedRequests),
		CreatedAt:         event.CreatedAt.UTC(),
	}
}

func convertRequestsToDomain(requests []model.Requests) []domain.ParticipationRequest {
	converted := make([]domain.ParticipationRequest, 0, len(requests))
	for _, r := range requests {
		converted = append(converted, convertRequestToDomain(r))
	}
	return converted
}

func convertRequestToDomain(r model.Requests) domain.ParticipationRequest {
	return domain.ParticipationRequest{
		ID:          r.ID,
		EventID:     r.EventID,
		RequesterID: r.RequesterID,
		Status:      domain.RequestStatus(r.Status),
		Created:     r.CreatedAt,
	}
}

func convertRequestFromDomain(r domain.ParticipationRequest) model.Requests {
	return model.Requests{
		ID:          r.ID,
		EventID:     r.EventID,
		RequesterID: r.RequesterID,
		Status:      string(r.Status),
		CreatedAt:   r.Created.UTC(),
	}
}

func convertReactionToDomain(r model.Reactions) domain.Reaction {
	return domain.Reaction{
		ID:      r.ID,
		EventID: r.EventID,
		UserID:  r.UserID,
		Type:    domain.ReactionType(r.Type),
		Created: r.CreatedAt,
	}
}

func convertReactionFromDomain(r domain.Reaction) model.Reactions {
	return model.Reactions{
		ID:        r.ID,
		EventID:   r.EventID,
		UserID:    r.UserID,
		Type:      string(r.Type),
		CreatedAt: r.Created.UTC(),
	}
}

func convertEdgeToDomain(edge model.Subscriptions, peer model.Users) domain.Subscription {
	return domain.Subscription{
		ID:               edge.ID,
		SubscriberID:     edge.SubscriberID,
		TargetUserID:     edge.TargetUserID,
		Peer:             convertUserToDomain(peer),
		SubscriptionTime: edge.CreatedAt,
		FriendshipStatus: domain.FriendshipStatus(edge.FriendshipStatus),
	}
}

func convertEdgeFromDomain(edge domain.Subscription) model.Subscriptions {
	return model.Subscriptions{
		ID:               edge.ID,
		SubscriberID:     edge.SubscriberID,
		TargetUserID:     edge.TargetUserID,
		FriendshipStatus: string(edge.FriendshipStatus),
		CreatedAt:        edge.SubscriptionTime.UTC(),
	}
}

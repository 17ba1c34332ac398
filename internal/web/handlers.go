package web

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/goserg/eventhub/internal/domain"
)

func (s *Server) handleListEventRequests(ctx *fiber.Ctx) error {
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	eventID, err := paramID(ctx, "eventId")
	if err != nil {
		return err
	}
	list, err := s.services.Admission.ListEventRequests(ctx.UserContext(), userID, eventID)
	if err != nil {
		return err
	}
	return ctx.JSON(newRequestDTOs(list))
}

func (s *Server) handleUpdateStatuses(ctx *fiber.Ctx) error {
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	eventID, err := paramID(ctx, "eventId")
	if err != nil {
		return err
	}
	var req statusUpdateRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	res, err := s.services.Admission.UpdateStatuses(ctx.UserContext(), userID, eventID, req.toDomain())
	if err != nil {
		return err
	}
	if len(res.Confirmed) > 0 {
		s.notify(fmt.Sprintf("Event %d: %d participation request(s) confirmed", eventID, len(res.Confirmed)))
	}
	return ctx.JSON(admissionResultDTO{
		ConfirmedRequests: newRequestDTOs(res.Confirmed),
		RejectedRequests:  newRequestDTOs(res.Rejected),
	})
}

func (s *Server) handleListUserRequests(ctx *fiber.Ctx) error {
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	list, err := s.services.Admission.ListUserRequests(ctx.UserContext(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(newRequestDTOs(list))
}

func (s *Server) handleSubmit(ctx *fiber.Ctx) error {
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	eventID, err := queryInt(ctx, "eventId", 0)
	if err != nil {
		return err
	}
	if eventID <= 0 {
		return fmt.Errorf("%w: eventId is required", errInvalidParam)
	}
	request, err := s.services.Admission.Submit(ctx.UserContext(), userID, int64(eventID))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(newRequestDTO(request))
}

func (s *Server) handleCancel(ctx *fiber.Ctx) error {
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	requestID, err := paramID(ctx, "requestId")
	if err != nil {
		return err
	}
	request, err := s.services.Admission.Cancel(ctx.UserContext(), userID, requestID)
	if err != nil {
		return err
	}
	return ctx.JSON(newRequestDTO(request))
}

func (s *Server) handleLike(ctx *fiber.Ctx) error {
	return s.react(ctx, domain.Like)
}

func (s *Server) handleDislike(ctx *fiber.Ctx) error {
	return s.react(ctx, domain.Dislike)
}

func (s *Server) react(ctx *fiber.Ctx, t domain.ReactionType) error {
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	eventID, err := paramID(ctx, "eventId")
	if err != nil {
		return err
	}
	if _, err := s.services.Admission.GetUser(ctx.UserContext(), userID); err != nil {
		return err
	}
	if _, err := s.services.Admission.GetEvent(ctx.UserContext(), eventID); err != nil {
		return err
	}
	res, err := s.services.Rating.React(ctx.UserContext(), eventID, userID, t)
	if err != nil {
		return err
	}
	return ctx.JSON(newReactionResultDTO(res))
}

func (s *Server) handleRating(ctx *fiber.Ctx) error {
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	eventID, err := paramID(ctx, "eventId")
	if err != nil {
		return err
	}
	if _, err := s.services.Admission.GetUser(ctx.UserContext(), userID); err != nil {
		return err
	}
	if _, err := s.services.Admission.GetEvent(ctx.UserContext(), eventID); err != nil {
		return err
	}
	rating, err := s.services.Rating.TotalRating(ctx.UserContext(), eventID)
	if err != nil {
		return err
	}
	return ctx.JSON(ratingDTO{
		EventID:  eventID,
		Likes:    rating.Likes,
		Dislikes: rating.Dislikes,
		Rating:   rating.Total,
	})
}

func (s *Server) handleSubscribe(ctx *fiber.Ctx) error {
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	var req subscribeRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	edge, err := s.services.Subscriptions.Subscribe(ctx.UserContext(), userID, req.TargetUserID)
	if err != nil {
		return err
	}
	if edge.FriendshipStatus == domain.FriendshipMutual {
		s.notify(fmt.Sprintf("Users %d and %d are now friends", userID, req.TargetUserID))
	}
	return ctx.Status(fiber.StatusCreated).JSON(newSubscriptionDTO(edge))
}

func (s *Server) handleUnsubscribe(ctx *fiber.Ctx) error {
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	targetID, err := paramID(ctx, "targetUserId")
	if err != nil {
		return err
	}
	edge, err := s.services.Subscriptions.Unsubscribe(ctx.UserContext(), userID, targetID)
	if err != nil {
		return err
	}
	return ctx.JSON(newSubscriptionDTO(edge))
}

func (s *Server) handleListSubscriptions(ctx *fiber.Ctx) error {
	return s.listEdges(ctx, domain.Outgoing)
}

func (s *Server) handleListSubscribers(ctx *fiber.Ctx) error {
	return s.listEdges(ctx, domain.Incoming)
}

func (s *Server) listEdges(ctx *fiber.Ctx, direction domain.Direction) error {
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	filter, err := parseFilter(ctx, userID)
	if err != nil {
		return err
	}
	var list []domain.Subscription
	if direction == domain.Incoming {
		list, err = s.services.Subscriptions.ListSubscribers(ctx.UserContext(), filter)
	} else {
		list, err = s.services.Subscriptions.ListSubscriptions(ctx.UserContext(), filter)
	}
	if err != nil {
		return err
	}
	return ctx.JSON(newSubscriptionDTOs(list))
}

func (s *Server) handleCount(ctx *fiber.Ctx) error {
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	count, err := s.services.Subscriptions.Count(ctx.UserContext(), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(countDTO{
		Subscriptions: count.Subscriptions,
		Subscribers:   count.Subscribers,
	})
}

func (s *Server) handleStatus(ctx *fiber.Ctx) error {
	userID, err := paramID(ctx, "userId")
	if err != nil {
		return err
	}
	targetID, err := paramID(ctx, "targetUserId")
	if err != nil {
		return err
	}
	status, err := s.services.Subscriptions.Status(ctx.UserContext(), userID, targetID)
	if err != nil {
		return err
	}
	out := statusDTO{FriendshipStatus: string(status.FriendshipStatus)}
	if status.SubscriptionTime != nil {
		t := formatTime(*status.SubscriptionTime)
		out.SubscriptionTime = &t
	}
	return ctx.JSON(out)
}

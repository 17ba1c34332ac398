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

type RatingService struct {
	reactions storage.ReactionStorage
	locks     *keylock.Locker
	now       func() time.Time
}

func NewRatingService(reactions storage.ReactionStorage) *RatingService {
	return &RatingService{
		reactions: reactions,
		locks:     keylock.New(),
		now:       time.Now,
	}
}

func reactionKey(eventID, userID int64) string {
	return "reaction:" + strconv.FormatInt(eventID, 10) + ":" + strconv.FormatInt(userID, 10)
}

// React toggles the user's mark on the event. Repeating the held mark removes
// it; the opposite mark is replaced.
func (s *RatingService) React(ctx context.Context, eventID, userID int64, t domain.ReactionType) (domain.ReactionResult, error) {
	if !t.Valid() {
		return domain.ReactionResult{}, domain.ErrInvalidReaction
	}
	unlock := s.locks.Lock(reactionKey(eventID, userID))
	defer unlock()

	return retryOnConflict(func() (domain.ReactionResult, error) {
		return s.react(ctx, eventID, userID, t)
	})
}

// react inserts into an empty slot and swaps an occupied one. An insert that
// loses to another writer fails with domain.ErrConcurrentUpdate.
func (s *RatingService) react(ctx context.Context, eventID, userID int64, t domain.ReactionType) (domain.ReactionResult, error) {
	current, ok, err := s.reactions.FindReaction(ctx, eventID, userID)
	if err != nil {
		return domain.ReactionResult{}, fmt.Errorf("find reaction: %w", err)
	}
	if ok && current.Type == t {
		if err := s.reactions.DeleteReaction(ctx, eventID, userID); err != nil {
			return domain.ReactionResult{}, fmt.Errorf("delete reaction: %w", err)
		}
		return domain.ReactionResult{Removed: true}, nil
	}

	next := domain.Reaction{
		EventID: eventID,
		UserID:  userID,
		Type:    t,
		Created: s.now(),
	}
	if !ok {
		next, err = s.reactions.InsertReaction(ctx, next)
		if err != nil {
			return domain.ReactionResult{}, fmt.Errorf("insert reaction: %w", err)
		}
		return domain.ReactionResult{Reaction: &next}, nil
	}
	next, err = s.reactions.SwapReaction(ctx, next)
	if err != nil {
		return domain.ReactionResult{}, fmt.Errorf("swap reaction: %w", err)
	}
	return domain.ReactionResult{Reaction: &next}, nil
}

func (s *RatingService) Like(ctx context.Context, eventID, userID int64) (domain.ReactionResult, error) {
	return s.React(ctx, eventID, userID, domain.Like)
}

func (s *RatingService) Dislike(ctx context.Context, eventID, userID int64) (domain.ReactionResult, error) {
	return s.React(ctx, eventID, userID, domain.Dislike)
}

func (s *RatingService) TotalRating(ctx context.Context, eventID int64) (domain.Rating, error) {
	likes, err := s.reactions.CountReactions(ctx, eventID, domain.Like)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("count likes: %w", err)
	}
	dislikes, err := s.reactions.CountReactions(ctx, eventID, domain.Dislike)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("count dislikes: %w", err)
	}
	return domain.Rating{
		Likes:    likes,
		Dislikes: dislikes,
		Total:    likes - dislikes,
	}, nil
}

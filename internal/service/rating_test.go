package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goserg/eventhub/internal/domain"
	"github.com/goserg/eventhub/internal/storage/mem"
)

func TestRatingService_React(t *testing.T) {
	ctx := context.Background()
	const eventID, userID = 1, 2

	tests := []struct {
		name      string
		sequence  []domain.ReactionType
		wantType  domain.ReactionType
		wantNone  bool
		wantTotal domain.Rating
	}{
		{
			name:      "like",
			sequence:  []domain.ReactionType{domain.Like},
			wantType:  domain.Like,
			wantTotal: domain.Rating{Likes: 1, Total: 1},
		},
		{
			name:      "like twice removes",
			sequence:  []domain.ReactionType{domain.Like, domain.Like},
			wantNone:  true,
			wantTotal: domain.Rating{},
		},
		{
			name:      "dislike replaces like",
			sequence:  []domain.ReactionType{domain.Like, domain.Dislike},
			wantType:  domain.Dislike,
			wantTotal: domain.Rating{Dislikes: 1, Total: -1},
		},
		{
			name:      "like after removal",
			sequence:  []domain.ReactionType{domain.Dislike, domain.Dislike, domain.Like},
			wantType:  domain.Like,
			wantTotal: domain.Rating{Likes: 1, Total: 1},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := mem.New()
			svc := NewRatingService(store)
			for _, r := range tt.sequence {
				_, err := svc.React(ctx, eventID, userID, r)
				require.NoError(t, err)
			}
			current, ok, err := store.FindReaction(ctx, eventID, userID)
			require.NoError(t, err)
			assert.Equal(t, !tt.wantNone, ok)
			if ok {
				assert.Equal(t, tt.wantType, current.Type)
			}
			rating, err := svc.TotalRating(ctx, eventID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, rating)
		})
	}
}

func TestRatingService_ReactResult(t *testing.T) {
	ctx := context.Background()
	svc := NewRatingService(mem.New())

	res, err := svc.Like(ctx, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, res.Reaction)
	assert.False(t, res.Removed)
	assert.Equal(t, domain.Like, res.Reaction.Type)

	res, err = svc.Like(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Nil(t, res.Reaction)

	_, err = svc.React(ctx, 1, 1, domain.ReactionType("MEH"))
	assert.ErrorIs(t, err, domain.ErrInvalidReaction)
}

func TestRatingService_TotalRating(t *testing.T) {
	ctx := context.Background()
	svc := NewRatingService(mem.New())

	for user := int64(1); user <= 5; user++ {
		_, err := svc.Like(ctx, 7, user)
		require.NoError(t, err)
	}
	for user := int64(6); user <= 7; user++ {
		_, err := svc.Dislike(ctx, 7, user)
		require.NoError(t, err)
	}
	_, err := svc.Like(ctx, 8, 1)
	require.NoError(t, err)

	rating, err := svc.TotalRating(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.Rating{Likes: 5, Dislikes: 2, Total: 3}, rating)

	empty, err := svc.TotalRating(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, domain.Rating{}, empty)
}

func TestRatingService_ConcurrentToggles(t *testing.T) {
	ctx := context.Background()
	store := mem.New()
	svc := NewRatingService(store)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := domain.Like
			if i%2 == 1 {
				r = domain.Dislike
			}
			_, err := svc.React(ctx, 3, 4, r)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rating, err := svc.TotalRating(ctx, 3)
	require.NoError(t, err)
	assert.LessOrEqual(t, rating.Likes+rating.Dislikes, int64(1))
}

// racingReactions fills the slot with another writer's mark right before the
// first insert.
type racingReactions struct {
	*mem.Storage
	t     *testing.T
	once  sync.Once
	other domain.Reaction
}

func (r *racingReactions) InsertReaction(ctx context.Context, reaction domain.Reaction) (domain.Reaction, error) {
	r.once.Do(func() {
		_, err := r.Storage.InsertReaction(ctx, r.other)
		require.NoError(r.t, err)
	})
	return r.Storage.InsertReaction(ctx, reaction)
}

func TestRatingService_ReactAfterForeignInsert(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		other     domain.ReactionType
		react     domain.ReactionType
		wantNone  bool
		wantTotal domain.Rating
	}{
		{
			name:      "same mark removes",
			other:     domain.Like,
			react:     domain.Like,
			wantNone:  true,
			wantTotal: domain.Rating{},
		},
		{
			name:      "opposite mark replaces",
			other:     domain.Like,
			react:     domain.Dislike,
			wantTotal: domain.Rating{Dislikes: 1, Total: -1},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			store := &racingReactions{
				Storage: mem.New(),
				t:       t,
				other:   domain.Reaction{EventID: 5, UserID: 6, Type: tt.other},
			}
			svc := NewRatingService(store)

			res, err := svc.React(ctx, 5, 6, tt.react)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNone, res.Removed)

			rating, err := svc.TotalRating(ctx, 5)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, rating)
		})
	}
}

package tgbot

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goserg/eventhub/internal/domain"
	"github.com/goserg/eventhub/internal/service"
	"github.com/goserg/eventhub/internal/storage/mem"
)

func newTestCommands(t *testing.T) (*Commands, *subscriptions, *mem.Storage) {
	t.Helper()
	store := mem.New()
	subs := newSubs()
	return NewCommands(Services{
		Admission:     service.NewAdmissionService(store, store),
		Rating:        service.NewRatingService(store),
		Subscriptions: service.NewSubscriptionService(store, store),
	}, subs), subs, store
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func TestCommands_SubUnsub(t *testing.T) {
	commands, subs, _ := newTestCommands(t)
	ctx := context.Background()

	_, err := commands.RunCommand(ctx, 42, "sub", "")
	require.NoError(t, err)
	text, err := commands.RunCommand(ctx, 42, "sub", "")
	require.NoError(t, err)
	assert.Contains(t, text, "Already")
	assert.Equal(t, []int64{42}, subs.ChatIDs())

	_, err = commands.RunCommand(ctx, 42, "unsub", "")
	require.NoError(t, err)
	assert.Empty(t, subs.ChatIDs())
	text, err = commands.RunCommand(ctx, 42, "unsub", "")
	require.NoError(t, err)
	assert.Contains(t, text, "Not subscribed")
}

func TestCommands_Queries(t *testing.T) {
	commands, _, store := newTestCommands(t)
	ctx := context.Background()

	ann, err := store.CreateUser(ctx, domain.User{Name: "ann", AllowSubscriptions: true})
	require.NoError(t, err)
	bob, err := store.CreateUser(ctx, domain.User{Name: "bob", AllowSubscriptions: true})
	require.NoError(t, err)
	event, err := store.CreateEvent(ctx, domain.Event{Title: "Go meetup", InitiatorID: ann.ID})
	require.NoError(t, err)
	_, err = store.InsertReaction(ctx, domain.Reaction{EventID: event.ID, UserID: bob.ID, Type: domain.Like})
	require.NoError(t, err)
	_, err = store.SaveEdges(ctx, domain.Subscription{
		SubscriberID:     bob.ID,
		TargetUserID:     ann.ID,
		FriendshipStatus: domain.FriendshipOneWay,
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		cmd     string
		args    string
		want    string
		wantErr bool
	}{
		{name: "rating", cmd: "rating", args: id(event.ID), want: "rating: 1"},
		{name: "rating of missing event", cmd: "rating", args: "99", wantErr: true},
		{name: "rating without id", cmd: "rating", args: "", wantErr: true},
		{name: "status", cmd: "status", args: id(bob.ID) + " " + id(ann.ID), want: "ONE_WAY"},
		{name: "no status", cmd: "status", args: id(ann.ID) + " " + id(bob.ID), want: "not subscribed"},
		{name: "status with one id", cmd: "status", args: "1", wantErr: true},
		{name: "count", cmd: "count", args: id(ann.ID), want: "subscribers: 1"},
		{name: "help", cmd: "help", args: "", want: "/rating"},
		{name: "help for command", cmd: "help", args: "status", want: "Usage: /status"},
		{name: "unknown", cmd: "top", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			text, err := commands.RunCommand(ctx, 1, tt.cmd, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, text, tt.want)
		})
	}
}

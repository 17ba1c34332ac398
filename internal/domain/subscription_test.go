package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionFilter_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		filter  SubscriptionFilter
		want    SubscriptionFilter
		wantErr error
	}{
		{
			name:   "defaults",
			filter: SubscriptionFilter{UserID: 1, Size: 10},
			want:   SubscriptionFilter{UserID: 1, Size: 10, SortField: SortByPeerName, SortDirection: Asc},
		},
		{
			name:   "lower case direction",
			filter: SubscriptionFilter{Size: 1, SortField: SortBySubscriptionTime, SortDirection: "desc"},
			want:   SubscriptionFilter{Size: 1, SortField: SortBySubscriptionTime, SortDirection: Desc},
		},
		{
			name:   "trimmed name",
			filter: SubscriptionFilter{Size: 1, PeerName: "  bob ", FriendshipStatus: FriendshipMutual},
			want:   SubscriptionFilter{Size: 1, PeerName: "bob", SortField: SortByPeerName, SortDirection: Asc, FriendshipStatus: FriendshipMutual},
		},
		{
			name:    "zero size",
			filter:  SubscriptionFilter{},
			wantErr: ErrInvalidPagination,
		},
		{
			name:    "negative offset",
			filter:  SubscriptionFilter{From: -1, Size: 5},
			wantErr: ErrInvalidPagination,
		},
		{
			name:    "unknown field",
			filter:  SubscriptionFilter{Size: 5, SortField: "email"},
			wantErr: ErrInvalidSortField,
		},
		{
			name:    "unknown direction",
			filter:  SubscriptionFilter{Size: 5, SortDirection: "sideways"},
			wantErr: ErrInvalidSortField,
		},
		{
			name:    "none is not a filter",
			filter:  SubscriptionFilter{Size: 5, FriendshipStatus: FriendshipNone},
			wantErr: ErrInvalidFilter,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.filter.Normalize()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvent_Seats(t *testing.T) {
	tests := []struct {
		name          string
		event         Event
		wantModerated bool
		wantFree      bool
	}{
		{name: "unlimited", event: Event{RequestModeration: true}, wantModerated: false, wantFree: true},
		{name: "open", event: Event{ParticipantLimit: 2, ConfirmedRequests: 1}, wantModerated: false, wantFree: true},
		{name: "moderated full", event: Event{ParticipantLimit: 2, ConfirmedRequests: 2, RequestModeration: true}, wantModerated: true, wantFree: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantModerated, tt.event.Moderated())
			assert.Equal(t, tt.wantFree, tt.event.HasFreeSeats())
		})
	}
}

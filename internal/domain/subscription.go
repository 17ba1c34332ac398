package domain

import (
	"strings"
	"time"
)

type FriendshipStatus string

const (
	// FriendshipNone is only reported by status lookups, edges never store it.
	FriendshipNone   FriendshipStatus = "NONE"
	FriendshipOneWay FriendshipStatus = "ONE_WAY"
	FriendshipMutual FriendshipStatus = "MUTUAL"
)

func (s FriendshipStatus) Valid() bool {
	return s == FriendshipOneWay || s == FriendshipMutual
}

// Subscription is a directed edge SubscriberID -> TargetUserID.
// Peer holds the profile of the other side relative to the query that
// produced the edge: the target for subscriptions, the subscriber for
// subscribers.
type Subscription struct {
	ID               int64
	SubscriberID     int64
	TargetUserID     int64
	Peer             User
	SubscriptionTime time.Time
	UnsubscribeTime  *time.Time
	FriendshipStatus FriendshipStatus
}

type SubscriptionStatus struct {
	FriendshipStatus FriendshipStatus
	SubscriptionTime *time.Time
}

type SubscriptionCount struct {
	Subscriptions int64
	Subscribers   int64
}

// Direction selects edges relative to the filter user.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

type SortField string

const (
	SortByPeerName         SortField = "peerName"
	SortBySubscriptionTime SortField = "subscriptionTime"
	SortByFriendshipStatus SortField = "friendshipStatus"
)

func (f SortField) Valid() bool {
	switch f {
	case SortByPeerName, SortBySubscriptionTime, SortByFriendshipStatus:
		return true
	}
	return false
}

type SortDirection string

const (
	Asc  SortDirection = "ASC"
	Desc SortDirection = "DESC"
)

func (d SortDirection) Valid() bool {
	return d == Asc || d == Desc
}

type SubscriptionFilter struct {
	UserID           int64
	From             int
	Size             int
	PeerName         string
	SortField        SortField
	SortDirection    SortDirection
	FriendshipStatus FriendshipStatus
	SubscriptionTime *time.Time
}

// Normalize fills defaults and validates sort and page parameters.
func (f SubscriptionFilter) Normalize() (SubscriptionFilter, error) {
	if f.From < 0 || f.Size <= 0 {
		return SubscriptionFilter{}, ErrInvalidPagination
	}
	if f.SortField == "" {
		f.SortField = SortByPeerName
	}
	if !f.SortField.Valid() {
		return SubscriptionFilter{}, ErrInvalidSortField
	}
	f.SortDirection = SortDirection(strings.ToUpper(string(f.SortDirection)))
	if f.SortDirection == "" {
		f.SortDirection = Asc
	}
	if !f.SortDirection.Valid() {
		return SubscriptionFilter{}, ErrInvalidSortField
	}
	if f.FriendshipStatus != "" && !f.FriendshipStatus.Valid() {
		return SubscriptionFilter{}, ErrInvalidFilter
	}
	f.PeerName = strings.TrimSpace(f.PeerName)
	return f, nil
}

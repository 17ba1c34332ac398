package domain

import "time"

type Event struct {
	ID                int64
	Title             string
	InitiatorID       int64
	ParticipantLimit  int
	RequestModeration bool
	ConfirmedRequests int
	CreatedAt         time.Time
}

// Moderated reports whether requests to the event wait for an initiator decision.
// Unlimited or unmoderated events confirm requests on submit.
func (e Event) Moderated() bool {
	return e.ParticipantLimit > 0 && e.RequestModeration
}

func (e Event) HasFreeSeats() bool {
	return e.ParticipantLimit == 0 || e.ConfirmedRequests < e.ParticipantLimit
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestConfirmed, RequestRejected, RequestCanceled:
		return true
	}
	return false
}

type ParticipationRequest struct {
	ID          int64
	EventID     int64
	RequesterID int64
	Status      RequestStatus
	Created     time.Time
}

// StatusUpdate is an initiator decision over a batch of pending requests.
type StatusUpdate struct {
	RequestIDs []int64
	Status     RequestStatus
}

// AdmissionResult lists requests in the order they were decided.
type AdmissionResult struct {
	Confirmed []ParticipationRequest
	Rejected  []ParticipationRequest
}

package domain

import "time"

type User struct {
	ID                 int64
	Name               string
	Email              string
	AllowSubscriptions bool
	RegisteredAt       time.Time
}

package entity

import "time"

type Event struct {
	ID          string    `json:"id" db:"event_id"`
	OrganizerID string    `json:"organizerId" db:"organizer_id"`
	Title       string    `json:"title" db:"title"`
	Date        time.Time `json:"date" db:"date"`
	Venue       string    `json:"venue" db:"venue"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

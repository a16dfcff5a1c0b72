package model

import "time"

// SeatGuard is a per-seat fence document. Every admission transaction bumps
// Version first, so two transactions on the same seat cannot both commit.
type SeatGuard struct {
	ID        string    `bson:"_id" json:"seat_id"`
	Version   int64     `bson:"version" json:"version"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

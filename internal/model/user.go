package model

import "time"

// User represents a row of the `users` table.  Users are created lazily
// on first contact from any surface and keyed by the external
// (voice-assistant) identity when one is known.
//
// Fields:
//  ID               – primary key identifier of the user.
//  ExternalIdentity – voice-assistant user id; unique, nullable.
//  DisplayName      – optional human readable name.
//  CreatedAt        – timestamp of creation.
type User struct {
	ID               uint64    `db:"id" json:"id"`                                 // users.id
	ExternalIdentity *string   `db:"external_identity" json:"external_identity"`   // users.external_identity (nullable)
	DisplayName      *string   `db:"display_name" json:"display_name"`             // users.display_name (nullable)
	CreatedAt        time.Time `db:"created_at" json:"created_at"`                 // users.created_at
}

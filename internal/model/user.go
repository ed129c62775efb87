package model

import "time"

type UserID string

// User is the logical account that owns external identities, sessions and
// soft actions. Users are bootstrapped out of band (wallet or social sign-in)
// and are never deleted by this subsystem.
type User struct {
	ID          UserID    `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Handle      string    `db:"handle" json:"handle"`
	AvatarURL   string    `db:"avatar_url" json:"avatar_url"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

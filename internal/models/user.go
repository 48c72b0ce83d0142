package models

import "time"

// User is an account owning all other entities by UserID. This engine never
// mutates it except through stats updates; registration lives elsewhere.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

package models

import "time"

// User is an account record in the user store.
type User struct {
	ID        string    `json:"_id"        bson:"_id,omitempty"`
	Name      string    `json:"name"       bson:"name"`
	Email     string    `json:"email"      bson:"email"`
	Password  string    `json:"-"          bson:"password"` // bcrypt hash, never serialized
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// AuthResponse is the body returned by login and register, and the exact
// shape the client session store persists.
type AuthResponse struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the JSON body for PUT /api/users/profile.
// Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// UserUpdate is a partial update applied to a stored user. Nil fields are
// left untouched. Password, when set, is already hashed.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

// ProfileResponse is the updated subset returned by the profile endpoint.
// The password is never echoed back.
type ProfileResponse struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

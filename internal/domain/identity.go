// Package domain contains entities without logic, just meta-data
// shared by the gateway, the registry and the voice pipelines.
package domain

type UserID string

// Identity is the claim bundle attached to a connection at handshake
// time. It is never mutated after the handshake.
type Identity struct {
	UserID UserID `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

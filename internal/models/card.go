// internal/models/card.go
package models

// Card is one of the fixed loteria cards. Cards are immutable values.
type Card struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	ArtworkRef string `json:"artworkRef"`
}

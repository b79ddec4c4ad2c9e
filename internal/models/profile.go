package models

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Age        *int      `json:"age,omitempty"`
	Gender     *string   `json:"gender,omitempty"`
	Disability *string   `json:"disability,omitempty"`
	AvatarURL  *string   `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProfileSummary is the subset of a profile shown next to requests,
// friends and search results.
type ProfileSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Age        *int      `json:"age,omitempty"`
	Gender     *string   `json:"gender,omitempty"`
	Disability *string   `json:"disability,omitempty"`
	AvatarURL  *string   `json:"avatar_url,omitempty"`
}

func (p *Profile) Summary() ProfileSummary {
	return ProfileSummary{
		ID:         p.ID,
		Name:       p.Name,
		Age:        p.Age,
		Gender:     p.Gender,
		Disability: p.Disability,
		AvatarURL:  p.AvatarURL,
	}
}

type UpsertProfileParams struct {
	Name       string  `json:"name"`
	Age        *int    `json:"age"`
	Gender     *string `json:"gender"`
	Disability *string `json:"disability"`
	AvatarURL  *string `json:"avatar_url"`
}

type ProfileSearchResult struct {
	ProfileSummary
	FriendshipStatus RelationshipStatus `json:"friendship_status"`
}

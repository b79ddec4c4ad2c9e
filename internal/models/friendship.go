package models

import (
	"time"

	"github.com/google/uuid"
)

// RelationshipStatus is the derived status of a pair as seen by a viewer.
// It is computed on every read and never stored.
type RelationshipStatus string

const (
	RelationshipNotFriends RelationshipStatus = "not_friends"
	RelationshipPending    RelationshipStatus = "pending"
	RelationshipFriends    RelationshipStatus = "friends"
)

// ParseRelationshipStatus maps a stored value to a status. Anything that is
// not one of the three known values is reported as not ok.
func ParseRelationshipStatus(s string) (RelationshipStatus, bool) {
	switch RelationshipStatus(s) {
	case RelationshipNotFriends, RelationshipPending, RelationshipFriends:
		return RelationshipStatus(s), true
	default:
		return RelationshipNotFriends, false
	}
}

type FriendRequestStatus string

const (
	FriendRequestPending   FriendRequestStatus = "pending"
	FriendRequestAccepted  FriendRequestStatus = "accepted"
	FriendRequestRejected  FriendRequestStatus = "rejected"
	FriendRequestCancelled FriendRequestStatus = "cancelled"
)

type Friendship struct {
	ID        uuid.UUID `json:"id"`
	User1ID   uuid.UUID `json:"user1_id"`
	User2ID   uuid.UUID `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Other returns the member of the pair that is not userID.
func (f *Friendship) Other(userID uuid.UUID) uuid.UUID {
	if f.User1ID == userID {
		return f.User2ID
	}
	return f.User1ID
}

type FriendRequest struct {
	ID         uuid.UUID           `json:"id"`
	SenderID   uuid.UUID           `json:"sender_id"`
	ReceiverID uuid.UUID           `json:"receiver_id"`
	Status     FriendRequestStatus `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

type IncomingFriendRequest struct {
	FriendRequest
	Sender ProfileSummary `json:"sender"`
}

type OutgoingFriendRequest struct {
	FriendRequest
	Receiver ProfileSummary `json:"receiver"`
}

type Friend struct {
	FriendshipID uuid.UUID      `json:"friendship_id"`
	Since        time.Time      `json:"since"`
	Profile      ProfileSummary `json:"profile"`
}

type FriendCounts struct {
	Total     int `json:"total"`
	Following int `json:"following"`
	Followers int `json:"followers"`
}

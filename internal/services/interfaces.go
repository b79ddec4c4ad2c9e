package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/fitcircle/internal/models"
)

// AuthServiceInterface defines the contract for authentication operations.
type AuthServiceInterface interface {
	Register(ctx context.Context, email, password string) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	ValidateSession(ctx context.Context, token string) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// ProfileServiceInterface defines the contract for profile operations.
type ProfileServiceInterface interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, userID uuid.UUID, params models.UpsertProfileParams) (*models.Profile, error)
	SearchProfiles(ctx context.Context, viewerID uuid.UUID, query string) ([]models.ProfileSearchResult, error)
}

// FriendServiceInterface defines the contract for the friend request
// workflow and the relationship reads built on it.
type FriendServiceInterface interface {
	ResolveStatus(ctx context.Context, viewerID, subjectID uuid.UUID) models.RelationshipStatus
	SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error)
	CancelRequest(ctx context.Context, senderID, receiverID uuid.UUID) error
	AcceptRequest(ctx context.Context, receiverID, requestID uuid.UUID) (*models.Friendship, error)
	RejectRequest(ctx context.Context, receiverID, requestID uuid.UUID) error
	ListIncomingRequests(ctx context.Context, userID uuid.UUID) ([]models.IncomingFriendRequest, error)
	ListSentRequests(ctx context.Context, userID uuid.UUID) ([]models.OutgoingFriendRequest, error)
	ListFriends(ctx context.Context, userID uuid.UUID) ([]models.Friend, error)
	GetCounts(ctx context.Context, userID uuid.UUID) (*models.FriendCounts, error)
}

var (
	_ AuthServiceInterface    = (*AuthService)(nil)
	_ ProfileServiceInterface = (*ProfileService)(nil)
	_ FriendServiceInterface  = (*FriendService)(nil)
	_ StatusResolver          = (*FriendService)(nil)
	_ PairLocker              = (*RedisPairLocker)(nil)
	_ RedisClient             = (*RedisAdapter)(nil)
	_ DB                      = (*PoolAdapter)(nil)
)

package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/fitcircle/internal/models"
)

type mockAuthService struct {
	RegisterFunc        func(ctx context.Context, email, password string) (*models.User, string, error)
	LoginFunc           func(ctx context.Context, email, password string) (*models.User, string, error)
	ValidateSessionFunc func(ctx context.Context, token string) (*models.User, error)
	DeleteSessionFunc   func(ctx context.Context, token string) error
}

func (m *mockAuthService) Register(ctx context.Context, email, password string) (*models.User, string, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password)
	}
	return &models.User{ID: uuid.New(), Email: email}, "token", nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return &models.User{ID: uuid.New(), Email: email}, "token", nil
}

func (m *mockAuthService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if m.ValidateSessionFunc != nil {
		return m.ValidateSessionFunc(ctx, token)
	}
	return nil, nil
}

func (m *mockAuthService) DeleteSession(ctx context.Context, token string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, token)
	}
	return nil
}

type mockProfileService struct {
	GetProfileFunc     func(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpsertProfileFunc  func(ctx context.Context, userID uuid.UUID, params models.UpsertProfileParams) (*models.Profile, error)
	SearchProfilesFunc func(ctx context.Context, viewerID uuid.UUID, query string) ([]models.ProfileSearchResult, error)
}

func (m *mockProfileService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, id)
	}
	return &models.Profile{ID: id}, nil
}

func (m *mockProfileService) UpsertProfile(ctx context.Context, userID uuid.UUID, params models.UpsertProfileParams) (*models.Profile, error) {
	if m.UpsertProfileFunc != nil {
		return m.UpsertProfileFunc(ctx, userID, params)
	}
	return &models.Profile{ID: userID, Name: params.Name}, nil
}

func (m *mockProfileService) SearchProfiles(ctx context.Context, viewerID uuid.UUID, query string) ([]models.ProfileSearchResult, error) {
	if m.SearchProfilesFunc != nil {
		return m.SearchProfilesFunc(ctx, viewerID, query)
	}
	return []models.ProfileSearchResult{}, nil
}

type mockFriendService struct {
	ResolveStatusFunc        func(ctx context.Context, viewerID, subjectID uuid.UUID) models.RelationshipStatus
	SendRequestFunc          func(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error)
	CancelRequestFunc        func(ctx context.Context, senderID, receiverID uuid.UUID) error
	AcceptRequestFunc        func(ctx context.Context, receiverID, requestID uuid.UUID) (*models.Friendship, error)
	RejectRequestFunc        func(ctx context.Context, receiverID, requestID uuid.UUID) error
	ListIncomingRequestsFunc func(ctx context.Context, userID uuid.UUID) ([]models.IncomingFriendRequest, error)
	ListSentRequestsFunc     func(ctx context.Context, userID uuid.UUID) ([]models.OutgoingFriendRequest, error)
	ListFriendsFunc          func(ctx context.Context, userID uuid.UUID) ([]models.Friend, error)
	GetCountsFunc            func(ctx context.Context, userID uuid.UUID) (*models.FriendCounts, error)
}

func (m *mockFriendService) ResolveStatus(ctx context.Context, viewerID, subjectID uuid.UUID) models.RelationshipStatus {
	if m.ResolveStatusFunc != nil {
		return m.ResolveStatusFunc(ctx, viewerID, subjectID)
	}
	return models.RelationshipNotFriends
}

func (m *mockFriendService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error) {
	if m.SendRequestFunc != nil {
		return m.SendRequestFunc(ctx, senderID, receiverID)
	}
	return &models.FriendRequest{ID: uuid.New(), SenderID: senderID, ReceiverID: receiverID, Status: models.FriendRequestPending}, nil
}

func (m *mockFriendService) CancelRequest(ctx context.Context, senderID, receiverID uuid.UUID) error {
	if m.CancelRequestFunc != nil {
		return m.CancelRequestFunc(ctx, senderID, receiverID)
	}
	return nil
}

func (m *mockFriendService) AcceptRequest(ctx context.Context, receiverID, requestID uuid.UUID) (*models.Friendship, error) {
	if m.AcceptRequestFunc != nil {
		return m.AcceptRequestFunc(ctx, receiverID, requestID)
	}
	return &models.Friendship{ID: uuid.New(), User2ID: receiverID}, nil
}

func (m *mockFriendService) RejectRequest(ctx context.Context, receiverID, requestID uuid.UUID) error {
	if m.RejectRequestFunc != nil {
		return m.RejectRequestFunc(ctx, receiverID, requestID)
	}
	return nil
}

func (m *mockFriendService) ListIncomingRequests(ctx context.Context, userID uuid.UUID) ([]models.IncomingFriendRequest, error) {
	if m.ListIncomingRequestsFunc != nil {
		return m.ListIncomingRequestsFunc(ctx, userID)
	}
	return []models.IncomingFriendRequest{}, nil
}

func (m *mockFriendService) ListSentRequests(ctx context.Context, userID uuid.UUID) ([]models.OutgoingFriendRequest, error) {
	if m.ListSentRequestsFunc != nil {
		return m.ListSentRequestsFunc(ctx, userID)
	}
	return []models.OutgoingFriendRequest{}, nil
}

func (m *mockFriendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.Friend, error) {
	if m.ListFriendsFunc != nil {
		return m.ListFriendsFunc(ctx, userID)
	}
	return []models.Friend{}, nil
}

func (m *mockFriendService) GetCounts(ctx context.Context, userID uuid.UUID) (*models.FriendCounts, error) {
	if m.GetCountsFunc != nil {
		return m.GetCountsFunc(ctx, userID)
	}
	return &models.FriendCounts{}, nil
}

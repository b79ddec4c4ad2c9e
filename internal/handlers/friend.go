package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/fitcircle/internal/logging"
	"github.com/HammerMeetNail/fitcircle/internal/models"
	"github.com/HammerMeetNail/fitcircle/internal/services"
)

type FriendHandler struct {
	friendService services.FriendServiceInterface
}

func NewFriendHandler(friendService services.FriendServiceInterface) *FriendHandler {
	return &FriendHandler{friendService: friendService}
}

type SendRequestRequest struct {
	ReceiverID string `json:"receiver_id"`
}

type FriendListResponse struct {
	Friends []models.Friend     `json:"friends"`
	Counts  models.FriendCounts `json:"counts"`
}

type FriendRequestsResponse struct {
	Incoming []models.IncomingFriendRequest `json:"incoming"`
	Sent     []models.OutgoingFriendRequest `json:"sent"`
}

type FriendStatusResponse struct {
	UserID uuid.UUID                 `json:"user_id"`
	Status models.RelationshipStatus `json:"status"`
}

type FriendRequestResponse struct {
	Request *models.FriendRequest `json:"request"`
	Message string                `json:"message"`
}

type AcceptResponse struct {
	Friendship *models.Friendship `json:"friendship"`
	Message    string             `json:"message"`
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	friends, err := h.friendService.ListFriends(r.Context(), user.ID)
	if err != nil {
		logging.Error("Error listing friends", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	counts, err := h.friendService.GetCounts(r.Context(), user.ID)
	if err != nil {
		logging.Error("Error counting friends", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, FriendListResponse{Friends: friends, Counts: *counts})
}

// Status never fails once the caller is authenticated: an unresolvable
// status is reported as not_friends.
func (h *FriendHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	subjectID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	status := h.friendService.ResolveStatus(r.Context(), user.ID, subjectID)
	writeJSON(w, http.StatusOK, FriendStatusResponse{UserID: subjectID, Status: status})
}

func (h *FriendHandler) Requests(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	incoming, err := h.friendService.ListIncomingRequests(r.Context(), user.ID)
	if err != nil {
		logging.Error("Error listing incoming requests", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	sent, err := h.friendService.ListSentRequests(r.Context(), user.ID)
	if err != nil {
		logging.Error("Error listing sent requests", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, FriendRequestsResponse{Incoming: incoming, Sent: sent})
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req SendRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid receiver ID")
		return
	}

	request, err := h.friendService.SendRequest(r.Context(), user.ID, receiverID)
	if err != nil {
		h.writeWorkflowError(w, "sending friend request", err)
		return
	}

	writeJSON(w, http.StatusCreated, FriendRequestResponse{Request: request, Message: "Friend request sent"})
}

func (h *FriendHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	receiverID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid receiver ID")
		return
	}

	if err := h.friendService.CancelRequest(r.Context(), user.ID, receiverID); err != nil {
		h.writeWorkflowError(w, "cancelling friend request", err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Friend request cancelled"})
}

func (h *FriendHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requestID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	friendship, err := h.friendService.AcceptRequest(r.Context(), user.ID, requestID)
	if err != nil {
		h.writeWorkflowError(w, "accepting friend request", err)
		return
	}

	writeJSON(w, http.StatusOK, AcceptResponse{Friendship: friendship, Message: "Friend request accepted"})
}

func (h *FriendHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requestID, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}

	if err := h.friendService.RejectRequest(r.Context(), user.ID, requestID); err != nil {
		h.writeWorkflowError(w, "rejecting friend request", err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Friend request rejected"})
}

func (h *FriendHandler) writeWorkflowError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, services.ErrCannotFriendSelf):
		writeError(w, http.StatusBadRequest, "Cannot send friend request to yourself")
	case errors.Is(err, services.ErrAlreadyFriends):
		writeError(w, http.StatusConflict, "Already friends")
	case errors.Is(err, services.ErrRequestExists):
		writeError(w, http.StatusConflict, "Friend request already sent")
	case errors.Is(err, services.ErrReverseRequestPending):
		writeError(w, http.StatusConflict, "This user has already sent you a friend request")
	case errors.Is(err, services.ErrOperationInProgress):
		writeError(w, http.StatusConflict, "Another request for this user is in progress")
	case errors.Is(err, services.ErrSenderProfileRequired):
		writeError(w, http.StatusConflict, "Set up your profile before sending friend requests")
	case errors.Is(err, services.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, services.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, "Friend request not found")
	case errors.Is(err, services.ErrNotRequestRecipient):
		writeError(w, http.StatusForbidden, "Only the recipient can respond to this request")
	case errors.Is(err, services.ErrRequestNotPending):
		writeError(w, http.StatusBadRequest, "Request is not pending")
	case errors.Is(err, services.ErrPartialAccept):
		var acceptErr *services.AcceptError
		step := ""
		if errors.As(err, &acceptErr) {
			step = acceptErr.Step
		}
		logging.Error("Friend request accept failed", map[string]interface{}{
			"step":  step,
			"error": err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "Failed to accept friend request")
	default:
		logging.Error("Error "+action, map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

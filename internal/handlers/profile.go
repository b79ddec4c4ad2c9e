package handlers

import (
	"errors"
	"net/http"

	"github.com/HammerMeetNail/fitcircle/internal/logging"
	"github.com/HammerMeetNail/fitcircle/internal/models"
	"github.com/HammerMeetNail/fitcircle/internal/services"
)

type ProfileHandler struct {
	profileService services.ProfileServiceInterface
	friendService  services.FriendServiceInterface
}

func NewProfileHandler(profileService services.ProfileServiceInterface, friendService services.FriendServiceInterface) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		friendService:  friendService,
	}
}

type ProfileResponse struct {
	Profile          *models.Profile           `json:"profile"`
	Counts           *models.FriendCounts      `json:"counts,omitempty"`
	FriendshipStatus models.RelationshipStatus `json:"friendship_status,omitempty"`
}

type ProfileSearchResponse struct {
	Profiles []models.ProfileSearchResult `json:"profiles"`
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.profileService.GetProfile(r.Context(), user.ID)
	if errors.Is(err, services.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "Profile not set up")
		return
	}
	if err != nil {
		logging.Error("Error getting profile", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	counts, err := h.friendService.GetCounts(r.Context(), user.ID)
	if err != nil {
		logging.Error("Error counting friends", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{Profile: profile, Counts: counts})
}

func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.UpsertProfileParams
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.profileService.UpsertProfile(r.Context(), user.ID, req)
	switch {
	case errors.Is(err, services.ErrInvalidName),
		errors.Is(err, services.ErrInvalidAge),
		errors.Is(err, services.ErrInvalidProfileTag),
		errors.Is(err, services.ErrInvalidAvatarURL):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logging.Error("Error saving profile", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{Profile: profile})
}

// Get returns another user's profile with the caller's view of the
// relationship and the profile owner's friend counts.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := parsePathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	profile, err := h.profileService.GetProfile(r.Context(), id)
	if errors.Is(err, services.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		logging.Error("Error getting profile", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	counts, err := h.friendService.GetCounts(r.Context(), id)
	if err != nil {
		logging.Error("Error counting friends", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		Profile:          profile,
		Counts:           counts,
		FriendshipStatus: h.friendService.ResolveStatus(r.Context(), user.ID, id),
	})
}

func (h *ProfileHandler) Search(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	profiles, err := h.profileService.SearchProfiles(r.Context(), user.ID, r.URL.Query().Get("q"))
	if err != nil {
		logging.Error("Error searching profiles", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ProfileSearchResponse{Profiles: profiles})
}

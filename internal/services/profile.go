package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/microcosm-cc/bluemonday"

	"github.com/HammerMeetNail/fitcircle/internal/models"
)

const (
	maxProfileNameLength       = 80
	maxProfileGenderLength     = 40
	maxProfileDisabilityLength = 200
	minProfileAge              = 13
	maxProfileAge              = 120
	minSearchQueryLength       = 2
	profileSearchLimit         = 20
)

var (
	ErrProfileNotFound   = errors.New("profile not found")
	ErrInvalidName       = errors.New("name must be between 1 and 80 characters")
	ErrInvalidAge        = errors.New("age must be between 13 and 120")
	ErrInvalidProfileTag = errors.New("gender or disability text is too long")
	ErrInvalidAvatarURL  = errors.New("avatar url must be an absolute http or https url")
)

// StatusResolver resolves the relationship between two users.
type StatusResolver interface {
	ResolveStatus(ctx context.Context, viewerID, subjectID uuid.UUID) models.RelationshipStatus
}

type ProfileService struct {
	db       DB
	resolver StatusResolver
	policy   *bluemonday.Policy
}

func NewProfileService(db DB, resolver StatusResolver) *ProfileService {
	return &ProfileService{
		db:       db,
		resolver: resolver,
		policy:   bluemonday.StrictPolicy(),
	}
}

func (s *ProfileService) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile := &models.Profile{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, age, gender, disability, avatar_url, created_at, updated_at
		 FROM profiles WHERE id = $1`,
		id,
	).Scan(&profile.ID, &profile.Name, &profile.Age, &profile.Gender, &profile.Disability,
		&profile.AvatarURL, &profile.CreatedAt, &profile.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return profile, nil
}

// UpsertProfile creates or replaces the profile owned by userID.
func (s *ProfileService) UpsertProfile(ctx context.Context, userID uuid.UUID, params models.UpsertProfileParams) (*models.Profile, error) {
	params, err := s.normalize(params)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO profiles (id, name, age, gender, disability, avatar_url)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   age = EXCLUDED.age,
		   gender = EXCLUDED.gender,
		   disability = EXCLUDED.disability,
		   avatar_url = EXCLUDED.avatar_url,
		   updated_at = NOW()
		 RETURNING id, name, age, gender, disability, avatar_url, created_at, updated_at`,
		userID, params.Name, params.Age, params.Gender, params.Disability, params.AvatarURL,
	).Scan(&profile.ID, &profile.Name, &profile.Age, &profile.Gender, &profile.Disability,
		&profile.AvatarURL, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("saving profile: %w", err)
	}
	return profile, nil
}

// SearchProfiles matches names case-insensitively, excluding the viewer, and
// attaches the viewer's relationship status to each result.
func (s *ProfileService) SearchProfiles(ctx context.Context, viewerID uuid.UUID, query string) ([]models.ProfileSearchResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchQueryLength {
		return []models.ProfileSearchResult{}, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, name, age, gender, disability, avatar_url
		 FROM profiles
		 WHERE id != $1 AND name ILIKE $2
		 ORDER BY name
		 LIMIT $3`,
		viewerID, "%"+escapeLike(query)+"%", profileSearchLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching profiles: %w", err)
	}
	defer rows.Close()

	results := []models.ProfileSearchResult{}
	for rows.Next() {
		var r models.ProfileSearchResult
		if err := rows.Scan(&r.ID, &r.Name, &r.Age, &r.Gender, &r.Disability, &r.AvatarURL); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("searching profiles: %w", err)
	}

	rows.Close()
	for i := range results {
		results[i].FriendshipStatus = s.resolver.ResolveStatus(ctx, viewerID, results[i].ID)
	}

	return results, nil
}

func (s *ProfileService) normalize(params models.UpsertProfileParams) (models.UpsertProfileParams, error) {
	params.Name = s.sanitize(params.Name)
	if n := utf8.RuneCountInString(params.Name); n == 0 || n > maxProfileNameLength {
		return params, ErrInvalidName
	}

	if params.Age != nil && (*params.Age < minProfileAge || *params.Age > maxProfileAge) {
		return params, ErrInvalidAge
	}

	params.Gender = s.sanitizeOptional(params.Gender)
	if params.Gender != nil && utf8.RuneCountInString(*params.Gender) > maxProfileGenderLength {
		return params, ErrInvalidProfileTag
	}
	params.Disability = s.sanitizeOptional(params.Disability)
	if params.Disability != nil && utf8.RuneCountInString(*params.Disability) > maxProfileDisabilityLength {
		return params, ErrInvalidProfileTag
	}

	if params.AvatarURL != nil {
		raw := strings.TrimSpace(*params.AvatarURL)
		if raw == "" {
			params.AvatarURL = nil
		} else {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return params, ErrInvalidAvatarURL
			}
			params.AvatarURL = &raw
		}
	}

	return params, nil
}

const maxSanitizePasses = 4

// sanitize strips markup and decodes the entities bluemonday leaves behind.
// Decoding can surface markup that was entity-encoded in the input, so the
// policy runs again until the text is stable. Input that never settles is
// kept in its escaped form.
func (s *ProfileService) sanitize(value string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		clean := html.UnescapeString(s.policy.Sanitize(value))
		if clean == value {
			return strings.TrimSpace(clean)
		}
		value = clean
	}
	return strings.TrimSpace(s.policy.Sanitize(value))
}

func (s *ProfileService) sanitizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	clean := s.sanitize(*value)
	if clean == "" {
		return nil
	}
	return &clean
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/fitcircle/internal/events"
	"github.com/HammerMeetNail/fitcircle/internal/logging"
	"github.com/HammerMeetNail/fitcircle/internal/metrics"
	"github.com/HammerMeetNail/fitcircle/internal/models"
)

var (
	ErrCannotFriendSelf      = errors.New("cannot send friend request to yourself")
	ErrAlreadyFriends        = errors.New("already friends with this user")
	ErrRequestExists         = errors.New("friend request already pending")
	ErrReverseRequestPending = errors.New("this user has already sent you a friend request")
	ErrRequestNotFound       = errors.New("friend request not found")
	ErrRequestNotPending     = errors.New("friend request is not pending")
	ErrNotRequestRecipient   = errors.New("only the recipient can accept or reject")
	ErrOperationInProgress   = errors.New("another friend request operation is in progress")
	ErrSenderProfileRequired = errors.New("set up a profile before sending friend requests")
)

// Transition labels used for metrics.
const (
	transitionSent      = "sent"
	transitionCancelled = "cancelled"
	transitionAccepted  = "accepted"
	transitionRejected  = "rejected"
)

const resolutionFailClosed = "fail_closed"

type FriendService struct {
	db        DB
	locker    PairLocker
	publisher events.Publisher
	metrics   metrics.Recorder
	logger    *logging.Logger
}

type FriendServiceOption func(*FriendService)

func WithPairLocker(locker PairLocker) FriendServiceOption {
	return func(s *FriendService) { s.locker = locker }
}

func WithPublisher(publisher events.Publisher) FriendServiceOption {
	return func(s *FriendService) { s.publisher = publisher }
}

func WithMetrics(recorder metrics.Recorder) FriendServiceOption {
	return func(s *FriendService) { s.metrics = recorder }
}

func WithLogger(logger *logging.Logger) FriendServiceOption {
	return func(s *FriendService) { s.logger = logger }
}

func NewFriendService(db DB, opts ...FriendServiceOption) *FriendService {
	s := &FriendService{
		db:        db,
		locker:    noopLocker{},
		publisher: events.NopPublisher{},
		metrics:   metrics.NopRecorder{},
		logger:    logging.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveStatus reports the relationship between viewer and subject as seen
// by viewer. Pending is reported only when viewer sent the request. Any
// failure to resolve yields not_friends.
func (s *FriendService) ResolveStatus(ctx context.Context, viewerID, subjectID uuid.UUID) models.RelationshipStatus {
	if viewerID == subjectID {
		return models.RelationshipNotFriends
	}

	status, err := s.checkStatus(ctx, s.db, viewerID, subjectID)
	if err != nil {
		s.logger.Warn("Friendship status unresolved, reporting not_friends", map[string]interface{}{
			"viewer_id":  viewerID.String(),
			"subject_id": subjectID.String(),
			"error":      err.Error(),
		})
		s.metrics.IncStatusResolution(resolutionFailClosed)
		return models.RelationshipNotFriends
	}

	s.metrics.IncStatusResolution(string(status))
	return status
}

func (s *FriendService) checkStatus(ctx context.Context, q Querier, viewerID, subjectID uuid.UUID) (models.RelationshipStatus, error) {
	var raw *string
	err := q.QueryRow(ctx,
		"SELECT check_friendship_status($1, $2)",
		viewerID, subjectID,
	).Scan(&raw)
	if err != nil {
		return "", fmt.Errorf("checking friendship status: %w", err)
	}
	if raw == nil {
		return "", errors.New("checking friendship status: null result")
	}

	status, ok := models.ParseRelationshipStatus(*raw)
	if !ok {
		return "", fmt.Errorf("checking friendship status: unknown value %q", *raw)
	}
	return status, nil
}

func (s *FriendService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrCannotFriendSelf
	}

	release, err := s.lockPair(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	defer release()

	var senderExists, receiverExists, friends, pending, reversePending bool
	err = s.db.QueryRow(ctx,
		`SELECT
			EXISTS(SELECT 1 FROM profiles WHERE id = $1),
			EXISTS(SELECT 1 FROM profiles WHERE id = $2),
			EXISTS(
				SELECT 1 FROM friendships
				WHERE (user1_id = $1 AND user2_id = $2)
				   OR (user1_id = $2 AND user2_id = $1)
			),
			EXISTS(
				SELECT 1 FROM friend_requests
				WHERE sender_id = $1 AND receiver_id = $2 AND status = 'pending'
			),
			EXISTS(
				SELECT 1 FROM friend_requests
				WHERE sender_id = $2 AND receiver_id = $1 AND status = 'pending'
			)`,
		senderID, receiverID,
	).Scan(&senderExists, &receiverExists, &friends, &pending, &reversePending)
	if err != nil {
		return nil, fmt.Errorf("checking existing relationship: %w", err)
	}

	switch {
	case !senderExists:
		return nil, ErrSenderProfileRequired
	case !receiverExists:
		return nil, ErrProfileNotFound
	case friends:
		return nil, ErrAlreadyFriends
	case pending:
		return nil, ErrRequestExists
	case reversePending:
		return nil, ErrReverseRequestPending
	}

	req := &models.FriendRequest{}
	err = s.db.QueryRow(ctx,
		`SELECT id, sender_id, receiver_id, status, created_at, updated_at
		 FROM send_friend_request($1, $2)`,
		senderID, receiverID,
	).Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrRequestExists
		}
		if constraint, ok := foreignKeyViolation(err); ok {
			if strings.Contains(constraint, "sender") {
				return nil, ErrSenderProfileRequired
			}
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("creating friend request: %w", err)
	}

	event := events.NewFriendshipEvent(events.TypeRequestSent, senderID, receiverID)
	event.RequestID = &req.ID
	s.recordTransition(ctx, transitionSent, event)

	return req, nil
}

// CancelRequest withdraws the pending request from sender to receiver by
// moving it to cancelled, so the sender may send again later.
func (s *FriendService) CancelRequest(ctx context.Context, senderID, receiverID uuid.UUID) error {
	release, err := s.lockPair(ctx, senderID, receiverID)
	if err != nil {
		return err
	}
	defer release()

	result, err := s.db.Exec(ctx,
		`UPDATE friend_requests SET status = 'cancelled', updated_at = NOW()
		 WHERE sender_id = $1 AND receiver_id = $2 AND status = 'pending'`,
		senderID, receiverID,
	)
	if err != nil {
		return fmt.Errorf("cancelling friend request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRequestNotFound
	}

	s.recordTransition(ctx, transitionCancelled,
		events.NewFriendshipEvent(events.TypeRequestCancelled, senderID, receiverID))
	return nil
}

// AcceptRequest creates the friendship and marks the request accepted in a
// single transaction. Failures after the precondition checks are returned
// as *AcceptError.
func (s *FriendService) AcceptRequest(ctx context.Context, receiverID, requestID uuid.UUID) (*models.Friendship, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin accept transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	req, err := s.lockPendingRequest(ctx, tx, receiverID, requestID)
	if err != nil {
		return nil, err
	}

	friendship, err := s.createFriendship(ctx, tx, req.SenderID, req.ReceiverID)
	if err != nil {
		return nil, &AcceptError{Step: AcceptStepCreateFriendship, Err: err}
	}

	// A crossing request from the other side is settled with this one.
	if _, err := tx.Exec(ctx,
		`UPDATE friend_requests SET status = 'accepted', updated_at = NOW()
		 WHERE id = $1
		    OR (sender_id = $2 AND receiver_id = $3 AND status = 'pending')`,
		requestID, req.ReceiverID, req.SenderID,
	); err != nil {
		return nil, &AcceptError{Step: AcceptStepMarkAccepted, Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &AcceptError{Step: AcceptStepCommit, Err: err}
	}
	committed = true

	event := events.NewFriendshipEvent(events.TypeRequestAccepted, req.SenderID, req.ReceiverID)
	event.RequestID = &req.ID
	event.FriendshipID = &friendship.ID
	s.recordTransition(ctx, transitionAccepted, event)

	return friendship, nil
}

func (s *FriendService) RejectRequest(ctx context.Context, receiverID, requestID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reject transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	req, err := s.lockPendingRequest(ctx, tx, receiverID, requestID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		"UPDATE friend_requests SET status = 'rejected', updated_at = NOW() WHERE id = $1",
		requestID,
	); err != nil {
		return fmt.Errorf("rejecting friend request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reject: %w", err)
	}
	committed = true

	event := events.NewFriendshipEvent(events.TypeRequestRejected, req.SenderID, req.ReceiverID)
	event.RequestID = &req.ID
	s.recordTransition(ctx, transitionRejected, event)
	return nil
}

// lockPendingRequest loads the request under a row lock and checks that the
// caller is its receiver and that it is still pending.
func (s *FriendService) lockPendingRequest(ctx context.Context, tx Tx, receiverID, requestID uuid.UUID) (*models.FriendRequest, error) {
	req := &models.FriendRequest{}
	err := tx.QueryRow(ctx,
		`SELECT id, sender_id, receiver_id, status, created_at, updated_at
		 FROM friend_requests
		 WHERE id = $1
		 FOR UPDATE`,
		requestID,
	).Scan(&req.ID, &req.SenderID, &req.ReceiverID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting friend request: %w", err)
	}

	if req.ReceiverID != receiverID {
		return nil, ErrNotRequestRecipient
	}
	if req.Status != models.FriendRequestPending {
		return nil, ErrRequestNotPending
	}
	return req, nil
}

// createFriendship inserts the pair or returns the row that already covers it.
func (s *FriendService) createFriendship(ctx context.Context, q Querier, senderID, receiverID uuid.UUID) (*models.Friendship, error) {
	friendship := &models.Friendship{}
	err := q.QueryRow(ctx,
		`INSERT INTO friendships (user1_id, user2_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING
		 RETURNING id, user1_id, user2_id, created_at`,
		senderID, receiverID,
	).Scan(&friendship.ID, &friendship.User1ID, &friendship.User2ID, &friendship.CreatedAt)
	if err == nil {
		return friendship, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("inserting friendship: %w", err)
	}

	err = q.QueryRow(ctx,
		`SELECT id, user1_id, user2_id, created_at
		 FROM friendships
		 WHERE (user1_id = $1 AND user2_id = $2)
		    OR (user1_id = $2 AND user2_id = $1)`,
		senderID, receiverID,
	).Scan(&friendship.ID, &friendship.User1ID, &friendship.User2ID, &friendship.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("loading existing friendship: %w", err)
	}
	return friendship, nil
}

// ListIncomingRequests returns pending requests addressed to userID with the
// sender's profile, newest first.
func (s *FriendService) ListIncomingRequests(ctx context.Context, userID uuid.UUID) ([]models.IncomingFriendRequest, error) {
	rows, err := s.db.Query(ctx,
		`SELECT fr.id, fr.sender_id, fr.receiver_id, fr.status, fr.created_at, fr.updated_at,
		        p.id, p.name, p.age, p.gender, p.disability, p.avatar_url
		 FROM friend_requests fr
		 JOIN profiles p ON p.id = fr.sender_id
		 WHERE fr.receiver_id = $1 AND fr.status = 'pending'
		 ORDER BY fr.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing incoming requests: %w", err)
	}
	defer rows.Close()

	requests := []models.IncomingFriendRequest{}
	for rows.Next() {
		var r models.IncomingFriendRequest
		if err := rows.Scan(
			&r.ID, &r.SenderID, &r.ReceiverID, &r.Status, &r.CreatedAt, &r.UpdatedAt,
			&r.Sender.ID, &r.Sender.Name, &r.Sender.Age, &r.Sender.Gender, &r.Sender.Disability, &r.Sender.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scanning incoming request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing incoming requests: %w", err)
	}

	return requests, nil
}

func (s *FriendService) ListSentRequests(ctx context.Context, userID uuid.UUID) ([]models.OutgoingFriendRequest, error) {
	rows, err := s.db.Query(ctx,
		`SELECT fr.id, fr.sender_id, fr.receiver_id, fr.status, fr.created_at, fr.updated_at,
		        p.id, p.name, p.age, p.gender, p.disability, p.avatar_url
		 FROM friend_requests fr
		 JOIN profiles p ON p.id = fr.receiver_id
		 WHERE fr.sender_id = $1 AND fr.status = 'pending'
		 ORDER BY fr.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sent requests: %w", err)
	}
	defer rows.Close()

	requests := []models.OutgoingFriendRequest{}
	for rows.Next() {
		var r models.OutgoingFriendRequest
		if err := rows.Scan(
			&r.ID, &r.SenderID, &r.ReceiverID, &r.Status, &r.CreatedAt, &r.UpdatedAt,
			&r.Receiver.ID, &r.Receiver.Name, &r.Receiver.Age, &r.Receiver.Gender, &r.Receiver.Disability, &r.Receiver.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scanning sent request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing sent requests: %w", err)
	}

	return requests, nil
}

func (s *FriendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.Friend, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.created_at,
		        p.id, p.name, p.age, p.gender, p.disability, p.avatar_url
		 FROM friendships f
		 JOIN profiles p ON p.id = CASE WHEN f.user1_id = $1 THEN f.user2_id ELSE f.user1_id END
		 WHERE f.user1_id = $1 OR f.user2_id = $1
		 ORDER BY p.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	defer rows.Close()

	friends := []models.Friend{}
	for rows.Next() {
		var f models.Friend
		if err := rows.Scan(
			&f.FriendshipID, &f.Since,
			&f.Profile.ID, &f.Profile.Name, &f.Profile.Age, &f.Profile.Gender, &f.Profile.Disability, &f.Profile.AvatarURL,
		); err != nil {
			return nil, fmt.Errorf("scanning friend: %w", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}

	return friends, nil
}

// GetCounts derives friend counts from friendships on every call. Following
// counts friendships the user initiated, Followers those initiated by others.
func (s *FriendService) GetCounts(ctx context.Context, userID uuid.UUID) (*models.FriendCounts, error) {
	counts := &models.FriendCounts{}
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE user1_id = $1),
		        COUNT(*) FILTER (WHERE user2_id = $1)
		 FROM friendships
		 WHERE user1_id = $1 OR user2_id = $1`,
		userID,
	).Scan(&counts.Total, &counts.Following, &counts.Followers)
	if err != nil {
		return nil, fmt.Errorf("counting friends: %w", err)
	}
	return counts, nil
}

// ReconcileAcceptedRequests marks accepted any pending request whose pair is
// already covered by a friendship.
func (s *FriendService) ReconcileAcceptedRequests(ctx context.Context) (int64, error) {
	result, err := s.db.Exec(ctx,
		`UPDATE friend_requests fr
		 SET status = 'accepted', updated_at = NOW()
		 WHERE fr.status = 'pending'
		   AND EXISTS (
		     SELECT 1 FROM friendships f
		     WHERE LEAST(f.user1_id, f.user2_id) = LEAST(fr.sender_id, fr.receiver_id)
		       AND GREATEST(f.user1_id, f.user2_id) = GREATEST(fr.sender_id, fr.receiver_id)
		   )`,
	)
	if err != nil {
		return 0, fmt.Errorf("reconciling accepted requests: %w", err)
	}

	n := result.RowsAffected()
	if n > 0 {
		s.logger.Info("Reconciled friend requests left pending after accept", map[string]interface{}{
			"count": n,
		})
	}
	return n, nil
}

// lockPair takes the pair lock. A held lock is reported to the caller; an
// unreachable lock backend is logged and the call proceeds unlocked.
func (s *FriendService) lockPair(ctx context.Context, a, b uuid.UUID) (func(), error) {
	release, err := s.locker.Acquire(ctx, a, b)
	if errors.Is(err, ErrLockHeld) {
		return nil, ErrOperationInProgress
	}
	if err != nil {
		s.logger.Warn("Pair lock unavailable, continuing without it", map[string]interface{}{
			"user_a": a.String(),
			"user_b": b.String(),
			"error":  err.Error(),
		})
		return func() {}, nil
	}
	return release, nil
}

func (s *FriendService) recordTransition(ctx context.Context, transition string, event events.FriendshipEvent) {
	s.metrics.IncTransition(transition)

	fields := map[string]interface{}{
		"transition":  transition,
		"sender_id":   event.SenderID.String(),
		"receiver_id": event.ReceiverID.String(),
	}
	if event.RequestID != nil {
		fields["request_id"] = event.RequestID.String()
	}
	s.logger.Info("Friend request transition", fields)

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish friendship event", map[string]interface{}{
			"type":  event.Type,
			"error": err.Error(),
		})
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/fitcircle/internal/models"
)

// memStore is an in-memory stand-in for the friendship tables. It answers
// the statements FriendService issues by matching on their text, and
// enforces the same uniqueness rules as the schema.
type memStore struct {
	mu          sync.Mutex
	profiles    map[uuid.UUID]models.Profile
	friendships []models.Friendship
	requests    []models.FriendRequest
	clock       time.Time

	// failOn makes any statement containing the substring fail.
	failOn string
}

func newMemStore(profiles ...models.Profile) *memStore {
	s := &memStore{
		profiles: map[uuid.UUID]models.Profile{},
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, p := range profiles {
		s.profiles[p.ID] = p
	}
	return s
}

func (s *memStore) now() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

type memSnapshot struct {
	friendships []models.Friendship
	requests    []models.FriendRequest
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		friendships: append([]models.Friendship(nil), s.friendships...),
		requests:    append([]models.FriendRequest(nil), s.requests...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friendships = snap.friendships
	s.requests = snap.requests
}

func (s *memStore) fail(sql string) error {
	if s.failOn != "" && strings.Contains(sql, s.failOn) {
		return errors.New("injected failure")
	}
	return nil
}

func (s *memStore) friendshipFor(a, b uuid.UUID) (models.Friendship, bool) {
	for _, f := range s.friendships {
		if (f.User1ID == a && f.User2ID == b) || (f.User1ID == b && f.User2ID == a) {
			return f, true
		}
	}
	return models.Friendship{}, false
}

func (s *memStore) pendingFrom(sender, receiver uuid.UUID) bool {
	for _, r := range s.requests {
		if r.SenderID == sender && r.ReceiverID == receiver && r.Status == models.FriendRequestPending {
			return true
		}
	}
	return false
}

func (s *memStore) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if err := s.fail(sql); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.Contains(sql, "'cancelled'"):
		sender, receiver := args[0].(uuid.UUID), args[1].(uuid.UUID)
		var n int64
		for i, r := range s.requests {
			if r.SenderID == sender && r.ReceiverID == receiver && r.Status == models.FriendRequestPending {
				s.requests[i].Status = models.FriendRequestCancelled
				s.requests[i].UpdatedAt = s.now()
				n++
			}
		}
		return fakeCommandTag{rowsAffected: n}, nil

	case strings.Contains(sql, "UPDATE friend_requests fr"):
		var n int64
		for i, r := range s.requests {
			if r.Status != models.FriendRequestPending {
				continue
			}
			if _, ok := s.friendshipFor(r.SenderID, r.ReceiverID); ok {
				s.requests[i].Status = models.FriendRequestAccepted
				n++
			}
		}
		return fakeCommandTag{rowsAffected: n}, nil

	case strings.Contains(sql, "UPDATE friend_requests SET status"):
		status := models.FriendRequestAccepted
		if strings.Contains(sql, "'rejected'") {
			status = models.FriendRequestRejected
		}
		id := args[0].(uuid.UUID)
		crossing := func(r models.FriendRequest) bool {
			return len(args) == 3 && r.Status == models.FriendRequestPending &&
				r.SenderID == args[1].(uuid.UUID) && r.ReceiverID == args[2].(uuid.UUID)
		}
		var n int64
		for i, r := range s.requests {
			if r.ID == id || crossing(r) {
				s.requests[i].Status = status
				s.requests[i].UpdatedAt = s.now()
				n++
			}
		}
		return fakeCommandTag{rowsAffected: n}, nil
	}
	return nil, fmt.Errorf("memStore: unhandled exec %q", sql)
}

func (s *memStore) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if err := s.fail(sql); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	userID := args[0].(uuid.UUID)
	summary := func(id uuid.UUID) []any {
		p := s.profiles[id]
		return []any{p.ID, p.Name, p.Age, p.Gender, p.Disability, p.AvatarURL}
	}

	switch {
	case strings.Contains(sql, "p.id = fr.sender_id"), strings.Contains(sql, "p.id = fr.receiver_id"):
		incoming := strings.Contains(sql, "p.id = fr.sender_id")
		var matched []models.FriendRequest
		for _, r := range s.requests {
			if r.Status != models.FriendRequestPending {
				continue
			}
			if (incoming && r.ReceiverID == userID) || (!incoming && r.SenderID == userID) {
				matched = append(matched, r)
			}
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

		rows := &fakeRows{}
		for _, r := range matched {
			other := r.SenderID
			if !incoming {
				other = r.ReceiverID
			}
			row := []any{r.ID, r.SenderID, r.ReceiverID, r.Status, r.CreatedAt, r.UpdatedAt}
			rows.rows = append(rows.rows, append(row, summary(other)...))
		}
		return rows, nil

	case strings.Contains(sql, "FROM friendships f"):
		var friends []models.Friend
		for _, f := range s.friendships {
			if f.User1ID != userID && f.User2ID != userID {
				continue
			}
			p := s.profiles[f.Other(userID)]
			friends = append(friends, models.Friend{FriendshipID: f.ID, Since: f.CreatedAt, Profile: p.Summary()})
		}
		sort.Slice(friends, func(i, j int) bool { return friends[i].Profile.Name < friends[j].Profile.Name })

		rows := &fakeRows{}
		for _, f := range friends {
			rows.rows = append(rows.rows, append([]any{f.FriendshipID, f.Since}, summary(f.Profile.ID)...))
		}
		return rows, nil
	}
	return nil, fmt.Errorf("memStore: unhandled query %q", sql)
}

func (s *memStore) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if err := s.fail(sql); err != nil {
		return errRow(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.Contains(sql, "check_friendship_status"):
		viewer, subject := args[0].(uuid.UUID), args[1].(uuid.UUID)
		status := "not_friends"
		if _, ok := s.friendshipFor(viewer, subject); ok {
			status = "friends"
		} else if s.pendingFrom(viewer, subject) {
			status = "pending"
		}
		return rowFromValues(status)

	case strings.Contains(sql, "FROM profiles WHERE id = $2"):
		sender, receiver := args[0].(uuid.UUID), args[1].(uuid.UUID)
		_, senderExists := s.profiles[sender]
		_, receiverExists := s.profiles[receiver]
		_, friends := s.friendshipFor(sender, receiver)
		return rowFromValues(senderExists, receiverExists, friends, s.pendingFrom(sender, receiver), s.pendingFrom(receiver, sender))

	case strings.Contains(sql, "send_friend_request"):
		sender, receiver := args[0].(uuid.UUID), args[1].(uuid.UUID)
		if s.pendingFrom(sender, receiver) {
			return errRow(&pgconn.PgError{Code: pgUniqueViolation})
		}
		now := s.now()
		r := models.FriendRequest{
			ID: uuid.New(), SenderID: sender, ReceiverID: receiver,
			Status: models.FriendRequestPending, CreatedAt: now, UpdatedAt: now,
		}
		s.requests = append(s.requests, r)
		return rowFromValues(r.ID, r.SenderID, r.ReceiverID, r.Status, r.CreatedAt, r.UpdatedAt)

	case strings.Contains(sql, "FOR UPDATE"):
		id := args[0].(uuid.UUID)
		for _, r := range s.requests {
			if r.ID == id {
				return rowFromValues(r.ID, r.SenderID, r.ReceiverID, r.Status, r.CreatedAt, r.UpdatedAt)
			}
		}
		return errRow(pgx.ErrNoRows)

	case strings.Contains(sql, "INSERT INTO friendships"):
		a, b := args[0].(uuid.UUID), args[1].(uuid.UUID)
		if _, ok := s.friendshipFor(a, b); ok {
			return errRow(pgx.ErrNoRows)
		}
		f := models.Friendship{ID: uuid.New(), User1ID: a, User2ID: b, CreatedAt: s.now()}
		s.friendships = append(s.friendships, f)
		return rowFromValues(f.ID, f.User1ID, f.User2ID, f.CreatedAt)

	case strings.Contains(sql, "FROM friendships") && strings.Contains(sql, "SELECT id, user1_id"):
		f, ok := s.friendshipFor(args[0].(uuid.UUID), args[1].(uuid.UUID))
		if !ok {
			return errRow(pgx.ErrNoRows)
		}
		return rowFromValues(f.ID, f.User1ID, f.User2ID, f.CreatedAt)

	case strings.Contains(sql, "COUNT(*)"):
		userID := args[0].(uuid.UUID)
		var total, following, followers int
		for _, f := range s.friendships {
			if f.User1ID == userID {
				following++
			}
			if f.User2ID == userID {
				followers++
			}
		}
		total = following + followers
		return rowFromValues(total, following, followers)
	}
	return errRow(fmt.Errorf("memStore: unhandled query row %q", sql))
}

func (s *memStore) Begin(ctx context.Context) (Tx, error) {
	if err := s.fail("BEGIN"); err != nil {
		return nil, err
	}
	return &memTx{store: s, snap: s.snapshot()}, nil
}

// memTx applies statements directly and restores the snapshot taken at
// Begin on rollback.
type memTx struct {
	store *memStore
	snap  memSnapshot
	done  bool
}

func (t *memTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return t.store.Exec(ctx, sql, args...)
}

func (t *memTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return t.store.Query(ctx, sql, args...)
}

func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return t.store.QueryRow(ctx, sql, args...)
}

func (t *memTx) Commit(ctx context.Context) error {
	if err := t.store.fail("COMMIT"); err != nil {
		t.store.restore(t.snap)
		t.done = true
		return err
	}
	t.done = true
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.store.restore(t.snap)
	t.done = true
	return nil
}

package breaks

import "sort"

// Sessions maps each user to at most one active break. It is the single
// source of truth for "is this user on break"; only Registry mutates it.
type Sessions struct {
	byUser map[int64]Session
}

// NewSessions creates an empty tracker
func NewSessions() *Sessions {
	return &Sessions{byUser: make(map[int64]Session)}
}

// IsOnBreak reports whether the user has an active session
func (s *Sessions) IsOnBreak(userID int64) bool {
	_, ok := s.byUser[userID]
	return ok
}

// Current returns the user's active session, if any
func (s *Sessions) Current(userID int64) (Session, bool) {
	sess, ok := s.byUser[userID]
	return sess, ok
}

// Active returns all sessions ordered by start time
func (s *Sessions) Active() []Session {
	out := make([]Session, 0, len(s.byUser))
	for _, sess := range s.byUser {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Len returns the number of active sessions
func (s *Sessions) Len() int {
	return len(s.byUser)
}

func (s *Sessions) put(sess Session) {
	s.byUser[sess.UserID] = sess
}

func (s *Sessions) remove(userID int64) (Session, bool) {
	sess, ok := s.byUser[userID]
	if ok {
		delete(s.byUser, userID)
	}
	return sess, ok
}

func (s *Sessions) clear() {
	s.byUser = make(map[int64]Session)
}

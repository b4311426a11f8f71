// Package session keeps login sessions and flash messages in Redis, keyed by
// an opaque cookie token.
package session

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "sess:"
	flashKeyPrefix   = "flash:"
)

// CookieName is the name of the session cookie.
const CookieName = "sessionid"

// Session is the authenticated user bound to a token.
type Session struct {
	Token    string
	UserID   int64
	Username string
}

// Flash is a one-shot status message shown on the next rendered page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Store struct {
	rdc *redis.Client
	ttl time.Duration
}

func NewStore(rdc *redis.Client, ttl time.Duration) *Store {
	return &Store{rdc: rdc, ttl: ttl}
}

// Create opens a new session for the user and returns its token.
func (s *Store) Create(ctx context.Context, userID int64, username string) (string, error) {
	token := uuid.NewString()
	key := sessionKeyPrefix + token
	if err := s.rdc.HSet(ctx, key,
		"user_id", strconv.FormatInt(userID, 10),
		"username", username,
	).Err(); err != nil {
		return "", err
	}
	if err := s.rdc.Expire(ctx, key, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Get resolves a token to its session. A missing or expired token yields
// (nil, nil) so callers can treat it as an anonymous request.
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.rdc.HGetAll(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	userID, err := strconv.ParseInt(data["user_id"], 10, 64)
	if err != nil {
		return nil, nil
	}
	return &Session{Token: token, UserID: userID, Username: data["username"]}, nil
}

// Delete ends a session and drops any undelivered flashes.
func (s *Store) Delete(ctx context.Context, token string) error {
	return s.rdc.Del(ctx, sessionKeyPrefix+token, flashKeyPrefix+token).Err()
}

// AddFlash queues a status message for the session's next page view.
func (s *Store) AddFlash(ctx context.Context, token, level, message string) error {
	raw, err := json.Marshal(Flash{Level: level, Message: message})
	if err != nil {
		return err
	}
	key := flashKeyPrefix + token
	if err := s.rdc.RPush(ctx, key, raw).Err(); err != nil {
		return err
	}
	return s.rdc.Expire(ctx, key, s.ttl).Err()
}

// PopFlashes drains the session's queued messages.
func (s *Store) PopFlashes(ctx context.Context, token string) ([]Flash, error) {
	key := flashKeyPrefix + token
	items, err := s.rdc.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	if err := s.rdc.Del(ctx, key).Err(); err != nil {
		return nil, err
	}
	flashes := make([]Flash, 0, len(items))
	for _, item := range items {
		var f Flash
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			continue
		}
		flashes = append(flashes, f)
	}
	return flashes, nil
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/veertikothari/campustrack/internal/entity"
)

// DraftStore keeps staged marks between requests, keyed by (faculty, event).
type DraftStore interface {
	Load(ctx context.Context, facultyID, eventID uuid.UUID) (Marks, error)
	Save(ctx context.Context, facultyID, eventID uuid.UUID, marks Marks) error
	Clear(ctx context.Context, facultyID, eventID uuid.UUID) error
}

func draftKey(facultyID, eventID uuid.UUID) string {
	return fmt.Sprintf("attendance:draft:%s:%s", facultyID.String(), eventID.String())
}

type redisDraftStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisDraftStore stores each draft as a hash of user_id -> status.
func NewRedisDraftStore(rdb *redis.Client, ttl time.Duration) DraftStore {
	return &redisDraftStore{rdb: rdb, ttl: ttl}
}

func (s *redisDraftStore) Load(ctx context.Context, facultyID, eventID uuid.UUID) (Marks, error) {
	val, err := s.rdb.HGetAll(ctx, draftKey(facultyID, eventID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance draft: %w", err)
	}

	marks := make(Marks, len(val))
	for k, v := range val {
		userID, err := uuid.Parse(k)
		if err != nil {
			continue
		}
		if status := entity.AttendanceStatus(v); status.Valid() {
			marks[userID] = status
		}
	}
	return marks, nil
}

func (s *redisDraftStore) Save(ctx context.Context, facultyID, eventID uuid.UUID, marks Marks) error {
	key := draftKey(facultyID, eventID)

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(marks) == 0 {
			return nil
		}
		fields := make(map[string]any, len(marks))
		for userID, status := range marks {
			fields[userID.String()] = string(status)
		}
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save attendance draft: %w", err)
	}
	return nil
}

func (s *redisDraftStore) Clear(ctx context.Context, facultyID, eventID uuid.UUID) error {
	return s.rdb.Del(ctx, draftKey(facultyID, eventID)).Err()
}

type memoryDraftStore struct {
	mu     sync.Mutex
	drafts map[string]Marks
}

// NewMemoryDraftStore is used when Redis is not configured.
func NewMemoryDraftStore() DraftStore {
	return &memoryDraftStore{drafts: make(map[string]Marks)}
}

func (s *memoryDraftStore) Load(_ context.Context, facultyID, eventID uuid.UUID) (Marks, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(Marks)
	for k, v := range s.drafts[draftKey(facultyID, eventID)] {
		out[k] = v
	}
	return out, nil
}

func (s *memoryDraftStore) Save(_ context.Context, facultyID, eventID uuid.UUID, marks Marks) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(Marks, len(marks))
	for k, v := range marks {
		copied[k] = v
	}
	s.drafts[draftKey(facultyID, eventID)] = copied
	return nil
}

func (s *memoryDraftStore) Clear(_ context.Context, facultyID, eventID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, draftKey(facultyID, eventID))
	return nil
}

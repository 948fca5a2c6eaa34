package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LearnerStore marks learner-session liveness in Redis. Progress itself
// stays in-process (no durable persistence); the markers only make active
// sessions visible across instances.
type LearnerStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLearnerStore(client *redis.Client, ttl time.Duration) *LearnerStore {
	return &LearnerStore{client: client, ttl: ttl}
}

// Connected marks the learner session as live. Best-effort.
func (s *LearnerStore) Connected(learnerID string) {
	_ = s.client.Set(context.Background(), s.key(learnerID), "1", s.ttl).Err()
}

// Disconnected clears the liveness marker. Best-effort.
func (s *LearnerStore) Disconnected(learnerID string) {
	_ = s.client.Del(context.Background(), s.key(learnerID)).Err()
}

func (s *LearnerStore) key(learnerID string) string {
	return "learner:session:" + learnerID
}

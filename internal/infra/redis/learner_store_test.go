package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLearnerStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewLearnerStore(client, time.Minute)

	store.Connected("learner-1")
	if !mr.Exists("learner:session:learner-1") {
		t.Fatalf("expected redis key to be set")
	}

	store.Disconnected("learner-1")
	if mr.Exists("learner:session:learner-1") {
		t.Fatalf("expected redis key to be removed")
	}
}

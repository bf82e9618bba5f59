package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"conclave/internal/responder"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	clock time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.clock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemory().WithClock(func() time.Time { return s.clock })
}

func (s *MemoryStoreSuite) advance(d time.Duration) {
	s.clock = s.clock.Add(d)
}

func rawFor(id string) *responder.RawResult {
	return &responder.RawResult{ResponderID: id, Payload: "payload for " + id}
}

func (s *MemoryStoreSuite) TestGetPut() {
	ctx := context.Background()
	fp := NewFingerprint("a question", "a/model", "v1")

	s.Run("empty store misses", func() {
		_, err := s.store.Get(ctx, fp)
		s.ErrorIs(err, ErrMiss)
	})

	s.Run("put then get round-trips", func() {
		s.Require().NoError(s.store.Put(ctx, fp, rawFor("a/model"), time.Hour))

		got, err := s.store.Get(ctx, fp)
		s.Require().NoError(err)
		s.Equal("a/model", got.ResponderID)
	})

	s.Run("returned value is a copy", func() {
		got, err := s.store.Get(ctx, fp)
		s.Require().NoError(err)
		got.Payload = "mutated"

		again, err := s.store.Get(ctx, fp)
		s.Require().NoError(err)
		s.Equal("payload for a/model", again.Payload)
	})
}

func (s *MemoryStoreSuite) TestExpiry() {
	ctx := context.Background()
	fp := NewFingerprint("a question", "a/model", "v1")
	s.Require().NoError(s.store.Put(ctx, fp, rawFor("a/model"), time.Hour))

	s.Run("fresh entry hits", func() {
		s.advance(59 * time.Minute)
		_, err := s.store.Get(ctx, fp)
		s.NoError(err)
	})

	s.Run("expired entry is a lazy miss", func() {
		s.advance(2 * time.Minute)
		_, err := s.store.Get(ctx, fp)
		s.ErrorIs(err, ErrMiss)
		s.Equal(1, s.store.Len(), "lazy eviction keeps the entry until sweep")
	})

	s.Run("sweep drops expired entries", func() {
		s.Equal(1, s.store.Sweep(ctx))
		s.Equal(0, s.store.Len())
	})

	s.Run("overwrite refreshes ttl", func() {
		s.Require().NoError(s.store.Put(ctx, fp, rawFor("a/model"), time.Hour))
		s.advance(30 * time.Minute)
		s.Require().NoError(s.store.Put(ctx, fp, rawFor("a/model"), time.Hour))
		s.advance(45 * time.Minute)

		_, err := s.store.Get(ctx, fp)
		s.NoError(err)
	})
}

func TestNewFingerprint(t *testing.T) {
	t.Run("stable across whitespace", func(t *testing.T) {
		a := NewFingerprint("what   is\n\tthis", "a/model", "v1")
		b := NewFingerprint("what is this", "a/model", "v1")
		if a != b {
			t.Fatalf("expected whitespace-normalized fingerprints to match: %s != %s", a, b)
		}
	})

	t.Run("varies by responder", func(t *testing.T) {
		a := NewFingerprint("q", "a/model", "v1")
		b := NewFingerprint("q", "b/model", "v1")
		if a == b {
			t.Fatal("expected different responders to produce different fingerprints")
		}
	})

	t.Run("varies by prompt version", func(t *testing.T) {
		a := NewFingerprint("q", "a/model", "v1")
		b := NewFingerprint("q", "a/model", "v2")
		if a == b {
			t.Fatal("expected different prompt versions to produce different fingerprints")
		}
	})
}

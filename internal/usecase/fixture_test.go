package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	memrepo "bridgeit/internal/adapter/repository"
	"bridgeit/internal/domain/entity"
	"bridgeit/internal/infrastructure/cache"
	"bridgeit/pkg/stream"
)

type fixture struct {
	chats     *memrepo.MemoryChatRepository
	profiles  *countingProfiles
	cache     *cache.MemoryIdentityCache
	resolver  *ProfileResolver
	directory *ChatDirectory
	thread    *ChatThread
	unread    *UnreadTracker
	chat      *ChatUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		chats:    memrepo.NewMemoryChatRepository(),
		profiles: &countingProfiles{MemoryProfileRepository: memrepo.NewMemoryProfileRepository()},
		cache:    cache.NewMemoryIdentityCache(),
	}
	f.resolver = NewProfileResolver(f.profiles, f.cache, nil)
	f.directory = NewChatDirectory(f.chats, f.resolver)
	f.thread = NewChatThread(f.chats, f.resolver, nil)
	f.unread = NewUnreadTracker(f.chats)
	f.chat = NewChatUseCase(f.resolver, f.directory, f.thread, f.unread, time.UTC)

	f.profiles.PutJobSeeker(&entity.JobSeekerProfile{UserID: "seeker-1", Name: "Jane Doe", Profession: "Welder"})
	f.profiles.PutEmployer(&entity.EmployerProfile{UserID: "employer-1", CompanyName: "Acme Corp", Industry: "Construction"})
	return f
}

// countingProfiles counts lookups and can be switched to fail.
type countingProfiles struct {
	*memrepo.MemoryProfileRepository
	calls atomic.Int32
	fail  atomic.Bool
}

func (p *countingProfiles) GetJobSeeker(ctx context.Context, userID string) (*entity.JobSeekerProfile, error) {
	p.calls.Add(1)
	if p.fail.Load() {
		return nil, fmt.Errorf("deadline exceeded")
	}
	return p.MemoryProfileRepository.GetJobSeeker(ctx, userID)
}

func (p *countingProfiles) GetEmployer(ctx context.Context, userID string) (*entity.EmployerProfile, error) {
	if p.fail.Load() {
		return nil, fmt.Errorf("deadline exceeded")
	}
	return p.MemoryProfileRepository.GetEmployer(ctx, userID)
}

type fakeAvatars struct {
	mu   sync.Mutex
	refs []string
	err  error
}

func (a *fakeAvatars) AvatarURL(ctx context.Context, ref string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refs = append(a.refs, ref)
	if a.err != nil {
		return "", a.err
	}
	return "https://signed.example/" + ref, nil
}

// fixedClock returns a clock that hands out the given instants in order,
// repeating the last one.
func fixedClock(times ...time.Time) func() time.Time {
	var (
		mu sync.Mutex
		i  int
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func nextUpdate[T any](t *testing.T, s *stream.Stream[T]) T {
	t.Helper()
	select {
	case v, ok := <-s.Updates():
		require.True(t, ok, "stream ended: %v", s.Err())
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	var zero T
	return zero
}

// waitFor reads updates until match reports true.
func waitFor[T any](t *testing.T, s *stream.Stream[T], match func(T) bool) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-s.Updates():
			require.True(t, ok, "stream ended: %v", s.Err())
			if match(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching update")
		}
	}
}

package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memrepo "bridgeit/internal/adapter/repository"
	"bridgeit/internal/domain/entity"
	"bridgeit/internal/infrastructure/cache"
)

func TestResolveJobSeekerAndEmployer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeker := f.resolver.Resolve(ctx, "seeker-1")
	assert.Equal(t, entity.IdentityJobSeeker, seeker.Kind)
	assert.Equal(t, "Jane Doe", seeker.DisplayName)
	assert.Equal(t, "JD", seeker.Initials)
	require.NotNil(t, seeker.JobSeeker)
	assert.Equal(t, "Welder", seeker.JobSeeker.Profession)
	assert.Nil(t, seeker.Employer)

	employer := f.resolver.Resolve(ctx, "employer-1")
	assert.Equal(t, entity.IdentityEmployer, employer.Kind)
	assert.Equal(t, "Acme Corp", employer.DisplayName)
	assert.Equal(t, "AC", employer.Initials)
	require.NotNil(t, employer.Employer)
}

func TestResolveJobSeekerWinsOverEmployer(t *testing.T) {
	f := newFixture(t)
	f.profiles.PutEmployer(&entity.EmployerProfile{UserID: "seeker-1", CompanyName: "Side Gig Ltd"})

	identity := f.resolver.Resolve(context.Background(), "seeker-1")
	assert.Equal(t, entity.IdentityJobSeeker, identity.Kind)
	assert.Equal(t, "Jane Doe", identity.DisplayName)
}

func TestResolveUnknownUser(t *testing.T) {
	f := newFixture(t)

	identity := f.resolver.Resolve(context.Background(), "ghost")
	assert.True(t, identity.IsUnknown())
	assert.Equal(t, "User", identity.DisplayName)
	assert.Equal(t, "U", identity.Initials)

	cached, ok := f.cache.Get(context.Background(), "ghost")
	require.True(t, ok, "not found is a definitive answer")
	assert.True(t, cached.IsUnknown())
}

func TestResolveUsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.resolver.Resolve(ctx, "seeker-1")
	f.resolver.Resolve(ctx, "seeker-1")
	f.resolver.Resolve(ctx, "seeker-1")

	assert.Equal(t, int32(1), f.profiles.calls.Load())
}

func TestResolveErrorIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.profiles.fail.Store(true)
	identity := f.resolver.Resolve(ctx, "seeker-1")
	assert.True(t, identity.IsUnknown())
	assert.Equal(t, 0, f.cache.Len())

	f.profiles.fail.Store(false)
	identity = f.resolver.Resolve(ctx, "seeker-1")
	assert.Equal(t, "Jane Doe", identity.DisplayName)
}

func TestResolveConcurrentLookupsAgree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]entity.Identity, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.resolver.Resolve(ctx, "employer-1")
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
	assert.LessOrEqual(t, f.profiles.calls.Load(), int32(20))
	assert.Equal(t, 1, f.cache.Len())
}

func TestResolveAvatarReferences(t *testing.T) {
	f := newFixture(t)
	f.profiles.PutJobSeeker(&entity.JobSeekerProfile{UserID: "seeker-2", Name: "Ana", PhotoURL: "gs://bucket/ana.jpg"})
	avatars := &fakeAvatars{}
	resolver := NewProfileResolver(f.profiles, cache.NewMemoryIdentityCache(), avatars)

	identity := resolver.Resolve(context.Background(), "seeker-2")
	assert.Equal(t, "https://signed.example/gs://bucket/ana.jpg", identity.AvatarURL)
	require.NotNil(t, identity.JobSeeker)
	assert.Equal(t, identity.AvatarURL, identity.JobSeeker.PhotoURL)

	// Served from cache, the reference is signed again.
	identity = resolver.Resolve(context.Background(), "seeker-2")
	assert.Equal(t, "https://signed.example/gs://bucket/ana.jpg", identity.AvatarURL)
	assert.Len(t, avatars.refs, 2)
	assert.Equal(t, []string{"gs://bucket/ana.jpg", "gs://bucket/ana.jpg"}, avatars.refs)

	avatars.err = errors.New("no signer")
	identity = resolver.Resolve(context.Background(), "seeker-2")
	assert.Empty(t, identity.AvatarURL)
	assert.Equal(t, "Ana", identity.DisplayName)
}

func TestResolveMany(t *testing.T) {
	f := newFixture(t)

	got := f.resolver.ResolveMany(context.Background(), []string{"seeker-1", "employer-1", "ghost", "seeker-1"})
	require.Len(t, got, 3)
	assert.Equal(t, "Jane Doe", got["seeker-1"].DisplayName)
	assert.Equal(t, "Acme Corp", got["employer-1"].DisplayName)
	assert.True(t, got["ghost"].IsUnknown())
}

func TestInitials(t *testing.T) {
	tests := map[string]string{
		"Jane Doe":          "JD",
		"acme":              "A",
		"  mary  ann  lee ": "MA",
		"":                  "U",
		"   ":               "U",
		"élodie durand":     "ÉD",
	}
	for name, want := range tests {
		assert.Equal(t, want, entity.Initials(name), "Initials(%q)", name)
	}
}

// slowProfiles holds job seeker lookups until release is closed.
type slowProfiles struct {
	*memrepo.MemoryProfileRepository
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *slowProfiles) GetJobSeeker(ctx context.Context, userID string) (*entity.JobSeekerProfile, error) {
	p.once.Do(func() { close(p.started) })
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return p.MemoryProfileRepository.GetJobSeeker(ctx, userID)
}

func TestResolveSharedLookupSurvivesCancelledCaller(t *testing.T) {
	profiles := &slowProfiles{
		MemoryProfileRepository: memrepo.NewMemoryProfileRepository(),
		started:                 make(chan struct{}),
		release:                 make(chan struct{}),
	}
	profiles.PutJobSeeker(&entity.JobSeekerProfile{UserID: "seeker-1", Name: "Jane Doe"})
	identities := cache.NewMemoryIdentityCache()
	resolver := NewProfileResolver(profiles, identities, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	first := make(chan entity.Identity, 1)
	go func() { first <- resolver.Resolve(ctxA, "seeker-1") }()
	<-profiles.started

	second := make(chan entity.Identity, 1)
	go func() { second <- resolver.Resolve(context.Background(), "seeker-1") }()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case got := <-first:
		assert.True(t, got.IsUnknown())
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(profiles.release)
	select {
	case got := <-second:
		assert.Equal(t, "Jane Doe", got.DisplayName)
		assert.Equal(t, entity.IdentityJobSeeker, got.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}

	cached, ok := identities.Get(context.Background(), "seeker-1")
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", cached.DisplayName)
}

package usecase

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"bridgeit/internal/domain/entity"
	"bridgeit/internal/domain/repository"
	"bridgeit/pkg/errors"
	"bridgeit/pkg/logger"
)

// IdentityCache stores resolved identities. Add never replaces an entry.
type IdentityCache interface {
	Get(ctx context.Context, userID string) (entity.Identity, bool)
	Add(ctx context.Context, userID string, identity entity.Identity)
}

// AvatarURLResolver turns a stored photo reference into a URL clients can load.
type AvatarURLResolver interface {
	AvatarURL(ctx context.Context, ref string) (string, error)
}

type ProfileResolver struct {
	profiles repository.ProfileRepository
	cache    IdentityCache
	avatars  AvatarURLResolver
	group    singleflight.Group
}

// NewProfileResolver builds a resolver. avatars may be nil, in which case
// photo references are returned unchanged.
func NewProfileResolver(profiles repository.ProfileRepository, cache IdentityCache, avatars AvatarURLResolver) *ProfileResolver {
	return &ProfileResolver{
		profiles: profiles,
		cache:    cache,
		avatars:  avatars,
	}
}

// Resolve never fails: a user with no profile, or whose lookup failed,
// resolves to the Unknown identity. Only definitive answers are cached.
func (r *ProfileResolver) Resolve(ctx context.Context, userID string) entity.Identity {
	if userID == "" {
		return entity.UnknownIdentity(userID)
	}

	if identity, ok := r.cache.Get(ctx, userID); ok {
		return r.present(ctx, identity)
	}

	// The lookup is shared by every caller waiting on userID.
	lookupCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(userID, func() (interface{}, error) {
		identity, definitive := r.lookup(lookupCtx, userID)
		if definitive {
			r.cache.Add(lookupCtx, userID, identity)
		}
		return identity, nil
	})

	select {
	case res := <-ch:
		return r.present(ctx, res.Val.(entity.Identity))
	case <-ctx.Done():
		return entity.UnknownIdentity(userID)
	}
}

// ResolveMany resolves every id concurrently. Duplicates are resolved once.
func (r *ProfileResolver) ResolveMany(ctx context.Context, userIDs []string) map[string]entity.Identity {
	unique := make([]string, 0, len(userIDs))
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	identities := make([]entity.Identity, len(unique))
	var wg sync.WaitGroup
	for i, id := range unique {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			identities[i] = r.Resolve(ctx, id)
		}(i, id)
	}
	wg.Wait()

	result := make(map[string]entity.Identity, len(unique))
	for i, id := range unique {
		result[id] = identities[i]
	}
	return result
}

// lookup tries the job-seeker collection, then the employer one. definitive
// is false when a lookup error prevented a conclusive answer.
func (r *ProfileResolver) lookup(ctx context.Context, userID string) (entity.Identity, bool) {
	seeker, err := r.profiles.GetJobSeeker(ctx, userID)
	if err == nil {
		return entity.JobSeekerIdentity(userID, seeker, seeker.PhotoURL), true
	}
	definitive := errors.IsNotFound(err)
	if !definitive {
		logger.Error("ResolveProfile Error: job seeker lookup for %s failed: %v", userID, err)
	}

	employer, err := r.profiles.GetEmployer(ctx, userID)
	if err == nil {
		return entity.EmployerIdentity(userID, employer, employer.PhotoURL), true
	}
	if !errors.IsNotFound(err) {
		logger.Error("ResolveProfile Error: employer lookup for %s failed: %v", userID, err)
		definitive = false
	}

	return entity.UnknownIdentity(userID), definitive
}

// present swaps the stored photo reference for a loadable URL. Cached
// identities keep the reference so signed URLs never outlive their expiry.
func (r *ProfileResolver) present(ctx context.Context, identity entity.Identity) entity.Identity {
	if identity.AvatarURL == "" || r.avatars == nil {
		return identity
	}
	url, err := r.avatars.AvatarURL(ctx, identity.AvatarURL)
	if err != nil {
		logger.Warn("ResolveProfile: avatar for %s unavailable: %v", identity.UserID, err)
		url = ""
	}
	identity.AvatarURL = url

	// Profiles are shared with the cache, copy before rewriting.
	if identity.JobSeeker != nil {
		p := *identity.JobSeeker
		p.PhotoURL = url
		identity.JobSeeker = &p
	}
	if identity.Employer != nil {
		p := *identity.Employer
		p.PhotoURL = url
		identity.Employer = &p
	}
	return identity
}

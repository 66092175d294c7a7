package repository

import (
	"context"
	"sync"

	"bridgeit/internal/domain/entity"
	"bridgeit/internal/domain/repository"
	"bridgeit/pkg/errors"
)

type MemoryProfileRepository struct {
	mu         sync.RWMutex
	jobSeekers map[string]*entity.JobSeekerProfile
	employers  map[string]*entity.EmployerProfile
}

var _ repository.ProfileRepository = (*MemoryProfileRepository)(nil)

func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{
		jobSeekers: make(map[string]*entity.JobSeekerProfile),
		employers:  make(map[string]*entity.EmployerProfile),
	}
}

func (r *MemoryProfileRepository) PutJobSeeker(p *entity.JobSeekerProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.jobSeekers[p.UserID] = &cp
}

func (r *MemoryProfileRepository) PutEmployer(p *entity.EmployerProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.employers[p.UserID] = &cp
}

func (r *MemoryProfileRepository) GetJobSeeker(ctx context.Context, userID string) (*entity.JobSeekerProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.jobSeekers[userID]
	if !ok {
		return nil, errors.NotFound("Profile", nil)
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryProfileRepository) GetEmployer(ctx context.Context, userID string) (*entity.EmployerProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.employers[userID]
	if !ok {
		return nil, errors.NotFound("Profile", nil)
	}
	cp := *p
	return &cp, nil
}

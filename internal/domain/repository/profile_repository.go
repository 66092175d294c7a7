package repository

import (
	"context"

	"bridgeit/internal/domain/entity"
)

// ProfileRepository reads the two disjoint profile collections. Both getters
// return a NOT_FOUND error when the user has no profile of that kind.
type ProfileRepository interface {
	GetJobSeeker(ctx context.Context, userID string) (*entity.JobSeekerProfile, error)
	GetEmployer(ctx context.Context, userID string) (*entity.EmployerProfile, error)
}

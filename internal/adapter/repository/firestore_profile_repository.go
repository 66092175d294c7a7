package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bridgeit/internal/domain/entity"
	"bridgeit/internal/domain/repository"
	"bridgeit/pkg/errors"
)

type firestoreProfileRepository struct {
	client              *firestore.Client
	jobSeekerCollection string
	employerCollection  string
}

func NewFirestoreProfileRepository(client *firestore.Client, jobSeekerCollection, employerCollection string) repository.ProfileRepository {
	return &firestoreProfileRepository{
		client:              client,
		jobSeekerCollection: jobSeekerCollection,
		employerCollection:  employerCollection,
	}
}

func (r *firestoreProfileRepository) GetJobSeeker(ctx context.Context, userID string) (*entity.JobSeekerProfile, error) {
	doc, err := r.find(ctx, r.jobSeekerCollection, userID)
	if err != nil {
		return nil, err
	}

	var profile entity.JobSeekerProfile
	if err := doc.DataTo(&profile); err != nil {
		return nil, errors.Internal("Failed to parse job seeker profile", err)
	}
	if profile.UserID == "" {
		profile.UserID = userID
	}
	return &profile, nil
}

func (r *firestoreProfileRepository) GetEmployer(ctx context.Context, userID string) (*entity.EmployerProfile, error) {
	doc, err := r.find(ctx, r.employerCollection, userID)
	if err != nil {
		return nil, err
	}

	var profile entity.EmployerProfile
	if err := doc.DataTo(&profile); err != nil {
		return nil, errors.Internal("Failed to parse employer profile", err)
	}
	if profile.UserID == "" {
		profile.UserID = userID
	}
	return &profile, nil
}

// find looks the profile up by document id first, then by the userId field
// that signup stores on documents created with a generated id.
func (r *firestoreProfileRepository) find(ctx context.Context, collection, userID string) (*firestore.DocumentSnapshot, error) {
	doc, err := r.client.Collection(collection).Doc(userID).Get(ctx)
	if err == nil {
		return doc, nil
	}
	if status.Code(err) != codes.NotFound {
		return nil, errors.Internal("Failed to get profile", err)
	}

	iter := r.client.Collection(collection).Where("userId", "==", userID).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err = iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("Profile", nil)
	}
	if err != nil {
		return nil, errors.Internal("Failed to query profile", err)
	}
	return doc, nil
}

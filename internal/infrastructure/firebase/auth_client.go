package firebase

import (
	"context"
	"fmt"
	"os"

	fbapp "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"bridgeit/pkg/config"
	"bridgeit/pkg/logger"
)

// CredentialsOption picks the service account from FIREBASE_SERVICE_ACCOUNT_JSON,
// then FIREBASE_SERVICE_ACCOUNT_PATH. With neither set it returns nil and
// application default credentials apply.
func CredentialsOption(cfg *config.Config) (option.ClientOption, error) {
	if cfg.ServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)), nil
	}
	if cfg.ServiceAccountPath != "" {
		if _, err := os.Stat(cfg.ServiceAccountPath); err != nil {
			return nil, fmt.Errorf("service account file %s: %w", cfg.ServiceAccountPath, err)
		}
		logger.Info("Using Firebase service account from file: %s", cfg.ServiceAccountPath)
		return option.WithCredentialsFile(cfg.ServiceAccountPath), nil
	}
	logger.Info("Using application default credentials")
	return nil, nil
}

// NewApp initializes the Firebase app for the configured project.
func NewApp(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*fbapp.App, error) {
	app, err := fbapp.NewApp(ctx, &fbapp.Config{
		ProjectID:     cfg.FirebaseProject,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
	}
	return app, nil
}

// FirebaseAuthClient verifies ID tokens issued by Firebase Auth. The uid of a
// verified token is the caller's identity.
type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}

	return result.UID, nil
}

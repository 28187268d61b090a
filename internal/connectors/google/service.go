package google

import (
	"context"
	"fmt"
	"os"

	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// DriveScope grants access to files shared with the service account.
const DriveScope = drive.DriveScope

// LoadServiceAccount reads a service-account key file and returns
// credentials for the given scopes.
func LoadServiceAccount(ctx context.Context, path string, scopes ...string) (*googleoauth.Credentials, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfigMissing, domain.EnvDriveServiceAccount)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read service account %s: %v", domain.ErrAuthInvalid, path, err)
	}
	if len(scopes) == 0 {
		scopes = []string{DriveScope}
	}
	creds, err := googleoauth.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parse service account: %v", domain.ErrAuthInvalid, err)
	}
	return creds, nil
}

// NewDriveService creates a Drive client authenticated as the service
// account. Extra options are appended, which lets tests point the client
// at a local server.
func NewDriveService(ctx context.Context, creds *googleoauth.Credentials, opts ...option.ClientOption) (*drive.Service, error) {
	all := make([]option.ClientOption, 0, len(opts)+1)
	if creds != nil {
		all = append(all, option.WithCredentials(creds))
	}
	all = append(all, opts...)
	svc, err := drive.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

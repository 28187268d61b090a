package connectors

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"github.com/custodia-labs/docrag/internal/connectors/filesystem"
	"github.com/custodia-labs/docrag/internal/connectors/google/drive"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// New builds the connector selected by the source settings.
func New(ctx context.Context, s domain.SourceSettings, driveOpts ...option.ClientOption) (driven.Connector, error) {
	switch s.Kind {
	case domain.SourceLocal, "":
		return filesystem.New(s.LocalPath, s.Extensions), nil
	case domain.SourceGoogleDrive:
		return drive.NewFromServiceAccount(ctx, drive.ConfigFromSettings(s), driveOpts...)
	default:
		return nil, fmt.Errorf("%w: source kind %q", domain.ErrUnsupportedType, s.Kind)
	}
}

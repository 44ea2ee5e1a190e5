package users

import (
	"context"
	"errors"

	"github.com/google/uuid"

	pkgerrors "github.com/virtucloud/virtucloud-backend/pkg/errors"
	"github.com/virtucloud/virtucloud-backend/pkg/logger"
)

// ServiceParams groups dependencies for the user admin service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// Service exposes account oversight operations for administrators.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds a user service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo, logg: params.Logger}, nil
}

// List returns every account, newest first.
func (s *Service) List(ctx context.Context) ([]UserDTO, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	dtos := make([]UserDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, *FromModel(&records[i]))
	}
	return dtos, nil
}

// Deactivate disables an account so it can no longer authenticate.
// Deactivating an already inactive account is a no-op.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	if user.IsActive {
		if err := s.repo.SetActive(ctx, id, false); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate user")
		}
		user.IsActive = false
		if s.logg != nil {
			s.logg.Info(s.logg.WithUserID(ctx, id.String()), "user deactivated")
		}
	}
	return FromModel(user), nil
}

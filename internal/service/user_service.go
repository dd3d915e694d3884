package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/gifttech/academy-api/internal/dto"
	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/repository"
)

var (
	// ErrEmailTaken indicates another account already uses the address.
	ErrEmailTaken = errors.New("email is already in use")
	// ErrRoleChangeForbidden indicates a non-admin attempted to change a role.
	ErrRoleChangeForbidden = errors.New("only admins can change roles")
	// ErrSelfDelete indicates an admin attempted to delete their own account.
	ErrSelfDelete = errors.New("cannot delete your own account")
)

// UserService manages account profiles.
type UserService interface {
	List(ctx context.Context, req dto.UserListRequest) (dto.UserListResult, error)
	Get(ctx context.Context, id uint) (dto.UserResponse, error)
	Update(ctx context.Context, id uint, actorRole string, req dto.UserUpdateRequest) (dto.UserResponse, error)
	Delete(ctx context.Context, id, actorID uint) error
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserService constructs the user service.
func NewUserService(repo repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) List(ctx context.Context, req dto.UserListRequest) (dto.UserListResult, error) {
	page := normalizePage(req.Page)
	pageSize := clampPageSize(req.PageSize)

	users, total, err := s.repo.List(ctx, repository.UserFilter{
		Role:     req.Role,
		Sort:     req.Sort,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return dto.UserListResult{}, err
	}

	items := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, dto.NewUserResponse(user))
	}

	return dto.UserListResult{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: calculateTotalPages(total, pageSize),
		},
	}, nil
}

func (s *userService) Get(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) Update(ctx context.Context, id uint, actorRole string, req dto.UserUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	if req.Role != nil && actorRole != models.RoleAdmin {
		return dto.UserResponse{}, ErrRoleChangeForbidden
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	if req.Email != nil && *req.Email != user.Email {
		taken, err := s.repo.EmailTaken(ctx, *req.Email, user.ID)
		if err != nil {
			return dto.UserResponse{}, err
		}
		if taken {
			return dto.UserResponse{}, ErrEmailTaken
		}
		user.Email = *req.Email
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if req.Role != nil {
		user.Role = *req.Role
	}

	if err := s.repo.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("user updated")

	return s.Get(ctx, user.ID)
}

func (s *userService) Delete(ctx context.Context, id, actorID uint) error {
	if id == actorID {
		return ErrSelfDelete
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.logger.Info().Uint("user_id", id).Msg("user deleted")

	return nil
}

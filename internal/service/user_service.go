package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/models"
	"github.com/noah-isme/quizmaster-api/internal/repository"
)

const userActivityAttemptLimit = 20

// UserRepositories groups the stores the user administration service reads.
type UserRepositories struct {
	Users       repository.UserRepository
	Attempts    repository.AttemptRepository
	Assignments repository.QuizAssignmentRepository
	Requests    repository.AccessRequestRepository
}

// UserService administers user accounts.
type UserService interface {
	List(ctx context.Context, req dto.UserListRequest) (dto.UserListResponse, error)
	Get(ctx context.Context, id uint) (dto.UserResponse, error)
	Update(ctx context.Context, id uint, payload dto.UserUpdateRequest, actor ActivityActor) (dto.UserResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
	Activity(ctx context.Context, id uint) (dto.UserActivityResponse, error)
}

type userService struct {
	repos      UserRepositories
	validator  *validator.Validate
	activity   ActivityRecorder
	stats      StatsInvalidator
	bcryptCost int
	logger     zerolog.Logger
	now        func() time.Time
}

// NewUserService constructs the user administration service.
func NewUserService(repos UserRepositories, validate *validator.Validate, activity ActivityRecorder, stats StatsInvalidator, bcryptCost int, logger zerolog.Logger) UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userService{
		repos:      repos,
		validator:  validate,
		activity:   activity,
		stats:      stats,
		bcryptCost: bcryptCost,
		logger:     logger.With().Str("component", "user_service").Logger(),
		now:        time.Now,
	}
}

func (s *userService) List(ctx context.Context, req dto.UserListRequest) (dto.UserListResponse, error) {
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := s.validator.Struct(req); err != nil {
		return dto.UserListResponse{}, err
	}

	users, total, err := s.repos.Users.List(ctx, repository.UserFilter{
		Search:   req.Search,
		Role:     req.Role,
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return dto.UserListResponse{}, storageError(err)
	}

	now := s.now()
	items := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, dto.NewUserResponse(user, now))
	}

	return dto.UserListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}, nil
}

func (s *userService) Get(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user, s.now()), nil
}

func (s *userService) Update(ctx context.Context, id uint, payload dto.UserUpdateRequest, actor ActivityActor) (dto.UserResponse, error) {
	if !actor.IsAdmin() {
		return dto.UserResponse{}, ErrAdminRequired
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}

	updates := map[string]interface{}{}
	changed := []string{}

	if payload.Username != nil {
		username := strings.TrimSpace(*payload.Username)
		if username != user.Username {
			if existing, err := s.repos.Users.GetByUsername(ctx, username); err == nil && existing.ID != id {
				return dto.UserResponse{}, ErrUsernameTaken
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.UserResponse{}, storageError(err)
			}
			updates["username"] = username
			changed = append(changed, "username")
		}
	}
	if payload.Role != nil && *payload.Role != user.Role {
		if id == actor.ID {
			return dto.UserResponse{}, ErrSelfModification
		}
		updates["role"] = *payload.Role
		changed = append(changed, "role")
	}
	if payload.Status != nil && *payload.Status != user.Status {
		if id == actor.ID && *payload.Status != models.UserStatusActive {
			return dto.UserResponse{}, ErrSelfModification
		}
		updates["status"] = *payload.Status
		changed = append(changed, "status")
	}
	if payload.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*payload.Password), s.bcryptCost)
		if err != nil {
			return dto.UserResponse{}, err
		}
		updates["password_hash"] = string(hash)
		changed = append(changed, "password")
	}

	if len(updates) == 0 {
		return dto.NewUserResponse(user, s.now()), nil
	}

	updated, err := s.repos.Users.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.UserResponse{}, ErrUsernameTaken
		}
		return dto.UserResponse{}, storageError(err)
	}

	metadata := map[string]interface{}{"fields": changed}
	if role, ok := updates["role"]; ok {
		metadata["role"] = role
	}
	if status, ok := updates["status"]; ok {
		metadata["status"] = status
	}
	s.record(ctx, actor, "user.updated", id, metadata)
	s.invalidateStats(ctx)

	return dto.NewUserResponse(updated, s.now()), nil
}

func (s *userService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if !actor.IsAdmin() {
		return ErrAdminRequired
	}
	if id == actor.ID {
		return ErrSelfModification
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	owned, err := s.repos.Users.CountOwnedQuizzes(ctx, id)
	if err != nil {
		return storageError(err)
	}
	if owned > 0 {
		return ErrUserOwnsQuizzes
	}

	if err := s.repos.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return storageError(err)
	}

	s.record(ctx, actor, "user.deleted", id, map[string]interface{}{"username": user.Username})
	s.invalidateStats(ctx)

	s.logger.Info().Uint("user_id", id).Uint("actor_id", actor.ID).Msg("user deleted")
	return nil
}

func (s *userService) Activity(ctx context.Context, id uint) (dto.UserActivityResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return dto.UserActivityResponse{}, err
	}

	attempts, err := s.repos.Attempts.ListByUser(ctx, id, userActivityAttemptLimit)
	if err != nil {
		return dto.UserActivityResponse{}, storageError(err)
	}
	assignments, err := s.repos.Assignments.ListByUser(ctx, id)
	if err != nil {
		return dto.UserActivityResponse{}, storageError(err)
	}
	requests, err := s.repos.Requests.List(ctx, repository.AccessRequestFilter{UserID: &id})
	if err != nil {
		return dto.UserActivityResponse{}, storageError(err)
	}

	return dto.UserActivityResponse{
		User:           dto.NewUserResponse(user, s.now()),
		Attempts:       dto.NewAttemptResponseSlice(attempts),
		Assignments:    dto.NewAssignmentResponseSlice(assignments),
		AccessRequests: dto.NewAccessRequestResponseSlice(requests),
	}, nil
}

func (s *userService) load(ctx context.Context, id uint) (models.User, error) {
	user, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, storageError(err)
	}
	return user, nil
}

func (s *userService) record(ctx context.Context, actor ActivityActor, action string, userID uint, metadata map[string]interface{}) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: "user",
		EntityID:   &userID,
		Metadata:   metadata,
	}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func (s *userService) invalidateStats(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}

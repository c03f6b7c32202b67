package service

import (
	userserrors "carrental/internal/users/errors"
	"carrental/internal/users/repository"
	"carrental/internal/users/validator"
	"carrental/pkg/auth"
	"carrental/pkg/config"
	apperrors "carrental/pkg/errors"
	"carrental/pkg/model"
	"carrental/pkg/sanitizer"
	"context"
	"errors"
	"sync"
)

type UserService interface {
	Create(ctx context.Context, req *model.RegisterRequest, role string) (*model.User, error)
	Authenticate(ctx context.Context, req *model.LoginRequest) (*model.User, error)
	GetByID(ctx context.Context, actor *auth.Actor, id string) (*model.User, error)
	GetAll(ctx context.Context, actor *auth.Actor, filter model.UserFilter, limit int, offset int64) ([]*model.User, int64, error)
	Update(ctx context.Context, actor *auth.Actor, id string, updates *model.UserUpdate) (*model.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.UserValidator
	hasher    PasswordHasher
	cfg       *config.Config
}

func NewUserService(
	repo repository.UserRepository,
	validator *validator.UserValidator,
	hasher PasswordHasher,
	cfg *config.Config,
) UserService {
	return &userService{
		repo:      repo,
		validator: validator,
		hasher:    hasher,
		cfg:       cfg,
	}
}

// Create registers a user with the given role. Callers decide the role; the
// public registration path always passes customer.
func (s *userService) Create(ctx context.Context, req *model.RegisterRequest, role string) (*model.User, error) {
	s.sanitizeRegistration(req)
	if err := s.validator.ValidateRegistration(req); err != nil {
		s.cfg.Log.Warn("User registration validation failed", "email", req.Email, "error", err)
		return nil, apperrors.Validation("Invalid registration input", map[string]any{"error": err.Error()})
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal("Failed to secure password", err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		PhoneNumber:  req.PhoneNumber,
		IDNumber:     req.IDNumber,
		Role:         role,
	}
	if err := s.validate(user); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if dupErr := duplicateConflict(err); dupErr != nil {
			s.cfg.Log.Warn("User registration rejected", "email", user.Email, "error", err)
			return nil, dupErr
		}
		s.cfg.Log.Error("Failed to create user", "email", user.Email, "error", err)
		return nil, apperrors.Internal("Failed to create user", err)
	}

	s.cfg.Log.Info("User created successfully", "id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	req.Email = sanitizer.NormalizeEmail(req.Email)
	if err := s.validator.ValidateLogin(req); err != nil {
		return nil, apperrors.Validation("Invalid login input", map[string]any{"error": err.Error()})
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			s.cfg.Log.Warn("Login failed", "email", req.Email, "reason", "unknown email")
			return nil, apperrors.Unauthorized("Invalid credentials")
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}

	ok, err := s.hasher.Compare(user.PasswordHash, req.Password)
	if err != nil {
		return nil, apperrors.Internal("Failed to verify password", err)
	}
	if !ok {
		s.cfg.Log.Warn("Login failed", "email", req.Email, "reason", "password mismatch")
		return nil, apperrors.Unauthorized("Invalid credentials")
	}

	return user, nil
}

func (s *userService) GetByID(ctx context.Context, actor *auth.Actor, id string) (*model.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}
	if err := auth.Authorize(actor, auth.UsersRead, id); err != nil {
		return nil, err
	}

	return s.find(ctx, id)
}

func (s *userService) GetAll(ctx context.Context, actor *auth.Actor, filter model.UserFilter, limit int, offset int64) ([]*model.User, int64, error) {
	if err := auth.Authorize(actor, auth.UsersRead, ""); err != nil {
		return nil, 0, err
	}
	if filter.Role != "" {
		if err := s.validator.ValidateRole(filter.Role); err != nil {
			return nil, 0, apperrors.InvalidInput(err.Error())
		}
	}

	var count int64
	var users []*model.User
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count users", "error", errCount)
			errCount = apperrors.Internal("Failed to count users", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		users, errFind = s.repo.FindAll(ctx, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list users", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve users", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return users, count, nil
}

func (s *userService) Update(ctx context.Context, actor *auth.Actor, id string, updates *model.UserUpdate) (*model.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}
	if err := auth.Authorize(actor, auth.UsersManage, id); err != nil {
		return nil, err
	}
	if updates.Role != nil && !actor.Can(auth.UsersManage) {
		s.cfg.Log.Warn("Role change denied", "id", id, "actor", actor.UserID)
		return nil, apperrors.Forbidden("Only administrators can change roles")
	}

	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	s.sanitizeUpdate(updates)
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("User update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged, err := s.mergeUserUpdates(existing, updates)
	if err != nil {
		return nil, err
	}
	if err := s.validate(merged); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		if dupErr := duplicateConflict(err); dupErr != nil {
			return nil, dupErr
		}
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		s.cfg.Log.Error("Failed to update user", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update user", err)
	}

	s.cfg.Log.Info("User updated successfully", "id", id)
	return merged, nil
}

// --- Helpers ---

func (s *userService) find(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		if errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid user ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func (s *userService) sanitizeRegistration(req *model.RegisterRequest) {
	req.Name = sanitizer.NormalizeName(req.Name)
	req.Email = sanitizer.NormalizeEmail(req.Email)
	req.PhoneNumber = sanitizer.SanitizePhone(req.PhoneNumber, s.cfg.PhoneRegion)
	req.IDNumber = sanitizer.NormalizeIDNumber(req.IDNumber)
}

func (s *userService) sanitizeUpdate(u *model.UserUpdate) {
	if u.Name != nil {
		*u.Name = sanitizer.NormalizeName(*u.Name)
	}
	if u.Email != nil {
		*u.Email = sanitizer.NormalizeEmail(*u.Email)
	}
	if u.PhoneNumber != nil {
		*u.PhoneNumber = sanitizer.SanitizePhone(*u.PhoneNumber, s.cfg.PhoneRegion)
	}
	if u.IDNumber != nil {
		*u.IDNumber = sanitizer.NormalizeIDNumber(*u.IDNumber)
	}
}

func (s *userService) mergeUserUpdates(existing *model.User, updates *model.UserUpdate) (*model.User, error) {
	merged := *existing

	if updates.Name != nil {
		merged.Name = *updates.Name
	}
	if updates.Email != nil {
		merged.Email = *updates.Email
	}
	if updates.PhoneNumber != nil {
		merged.PhoneNumber = *updates.PhoneNumber
	}
	if updates.IDNumber != nil {
		merged.IDNumber = *updates.IDNumber
	}
	if updates.Role != nil {
		merged.Role = *updates.Role
	}
	if updates.Password != nil {
		hash, err := s.hasher.Hash(*updates.Password)
		if err != nil {
			return nil, apperrors.Internal("Failed to secure password", err)
		}
		merged.PasswordHash = hash
	}

	return &merged, nil
}

func (s *userService) validate(user *model.User) error {
	if err := s.validator.Validate(user); err != nil {
		s.cfg.Log.Warn("User validation failed", "error", err)
		return apperrors.Validation("User validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func duplicateConflict(err error) error {
	switch {
	case errors.Is(err, userserrors.ErrDuplicateEmail):
		return apperrors.Conflict("A user with this email already exists")
	case errors.Is(err, userserrors.ErrDuplicateIDNumber):
		return apperrors.Conflict("A user with this ID number already exists")
	}
	return nil
}

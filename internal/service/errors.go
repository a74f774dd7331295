package service

import (
	"errors"
	"fmt"

	"github.com/noah-isme/quizmaster-api/internal/models"
)

// Error kinds. Every error returned by a service wraps one of these.
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidState     = errors.New("invalid state")
	ErrStorageFailure   = errors.New("storage failure")
	ErrConflict         = errors.New("conflict")
)

var (
	ErrUserNotFound          = fmt.Errorf("user %w", ErrNotFound)
	ErrQuizNotFound          = fmt.Errorf("quiz %w", ErrNotFound)
	ErrQuestionNotFound      = fmt.Errorf("question %w", ErrNotFound)
	ErrAttemptNotFound       = fmt.Errorf("attempt %w", ErrNotFound)
	ErrAccessRequestNotFound = fmt.Errorf("access request %w", ErrNotFound)
	ErrNotificationNotFound  = fmt.Errorf("notification %w", ErrNotFound)
)

var (
	ErrPendingRequestExists = fmt.Errorf("%w: an access request for this quiz is already pending", ErrDuplicateRequest)

	ErrAdminRequired    = fmt.Errorf("%w: admin role required", ErrUnauthorized)
	ErrNotQuizOwner     = fmt.Errorf("%w: only the quiz owner or an admin may change this quiz", ErrUnauthorized)
	ErrQuizAccessDenied = fmt.Errorf("%w: access to this quiz has not been granted", ErrUnauthorized)
	ErrNotAttemptOwner  = fmt.Errorf("%w: attempt belongs to another user", ErrUnauthorized)
	ErrAccountSuspended = fmt.Errorf("%w: account suspended", ErrUnauthorized)

	ErrAccessFlagsInvalid   = fmt.Errorf("%w: %w", ErrInvalidState, models.ErrInvalidAssignmentFlags)
	ErrRequestNotPending    = fmt.Errorf("%w: access request already resolved", ErrInvalidState)
	ErrPublicQuizRequest    = fmt.Errorf("%w: public quizzes do not need access requests", ErrInvalidState)
	ErrAccessAlreadyGranted = fmt.Errorf("%w: access already granted", ErrInvalidState)
	ErrAttemptCompleted     = fmt.Errorf("%w: attempt already completed", ErrInvalidState)
	ErrAttemptExpired       = fmt.Errorf("%w: attempt time limit exceeded", ErrInvalidState)
	ErrSelfModification     = fmt.Errorf("%w: admins cannot demote, suspend or delete themselves", ErrInvalidState)
	ErrInvalidAnswerKey     = fmt.Errorf("%w: correct answer does not match the question type", ErrInvalidState)

	ErrUsernameTaken   = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrUserOwnsQuizzes = fmt.Errorf("%w: user still owns quizzes", ErrConflict)

	// ErrInvalidCredentials covers unknown usernames and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

func storageError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}

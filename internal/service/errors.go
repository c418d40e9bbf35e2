package service

import (
	"errors"
	"fmt"

	"fad-monitoring-backend/internal/repository"
)

// Error kinds returned by services. Handlers map them to HTTP status codes in one place.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserDisabled         = errors.New("user is disabled")
	ErrForbidden            = errors.New("insufficient permissions")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrAreaRequired         = errors.New("area id or area name is required")
	ErrAreaInUse            = errors.New("area still has photos")
	ErrGroupAlreadyComplete = errors.New("comparison group already complete")
	ErrCategorySlotTaken    = errors.New("category already has a photo in this group")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidTakenAt       = errors.New("invalid takenAt")
	ErrInvalidUpload        = errors.New("invalid upload")
	ErrConversionFailed     = errors.New("HEIC conversion failed, try again or convert to JPG/PNG")
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrDuplicate            = errors.New("already exists")
)

// FileError attaches the index of the offending file in an upload batch
type FileError struct {
	Index int
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %d: %v", e.Index, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// mapRepoErr converts repository sentinels into service errors
func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicate
	}
	return err
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

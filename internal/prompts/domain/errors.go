package domain

import "errors"

var (
	ErrPromptNotFound   = errors.New("prompt not found")
	ErrVersionNotFound  = errors.New("prompt version not found")
	ErrAutoSaveNotFound = errors.New("auto-save not found")
	ErrVersionMismatch  = errors.New("version does not belong to prompt")
	ErrVersionConflict  = errors.New("version number already exists")
	ErrInvalidInput     = errors.New("invalid input")
)

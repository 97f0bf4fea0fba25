package services

import "errors"

var (
	ErrLocationNotFound   = errors.New("location not found")
	ErrFeatureNotFound    = errors.New("feature not found")
	ErrLocked             = errors.New("location is locked by another user")
	ErrVersionConflict    = errors.New("location was modified concurrently")
	ErrInvalidLocation    = errors.New("invalid location")
	ErrInvalidFeature     = errors.New("invalid feature")
	ErrHistoryUnavailable = errors.New("audit history is not available")
)

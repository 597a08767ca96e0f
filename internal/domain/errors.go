package domain

import "errors"

var (
	ErrInvalidTimeFormat = errors.New("time of day must be in HH:MM format")
	ErrActivityNotFound  = errors.New("activity not found")
)

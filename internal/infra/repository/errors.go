package repository

import "errors"

var (
	ErrRedisConnection     = errors.New("redis connection error")
	ErrInvalidActivityData = errors.New("invalid activity data")
)

package service

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrRateLimited  = errors.New("issuance rate limit exceeded")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrUserNotFound = errors.New("user not found")
)

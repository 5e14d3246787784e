package jwt

import "errors"

var (
	ErrInvalidToken         = errors.New("jwt: invalid token")
	ErrExpiredToken         = errors.New("jwt: token is expired")
	ErrMissingSigningKey    = errors.New("jwt: missing signing key")
	ErrInvalidClaims        = errors.New("jwt: invalid claims")
	ErrInvalidSignature     = errors.New("jwt: invalid signature")
	ErrMissingToken         = errors.New("jwt: missing token")
	ErrInsufficientClaims   = errors.New("jwt: required claim is missing")
	ErrUnexpectedSigningAlg = errors.New("jwt: unexpected signing method")
)

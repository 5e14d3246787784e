package jwt

import (
	"errors"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Service signs and verifies HS256 tokens.
type Service struct {
	signingKey []byte
	parser     *gojwt.Parser
}

// New creates a Service with the given HMAC key.
func New(signingKey []byte) (*Service, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	return &Service{
		signingKey: signingKey,
		parser: gojwt.NewParser(
			gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
			gojwt.WithIssuedAt(),
		),
	}, nil
}

// NewFromString is New for string keys, usually read from the environment.
func NewFromString(signingKey string) (*Service, error) {
	return New([]byte(signingKey))
}

// Generate signs the claims.
func (s *Service) Generate(claims Claims) (string, error) {
	if claims == nil {
		return "", ErrInvalidClaims
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims(claims))
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", errors.Join(ErrInvalidClaims, err)
	}
	return signed, nil
}

// Parse verifies the token signature and registered time claims and returns
// the payload.
func (s *Service) Parse(tokenString string) (Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := s.parser.ParseWithClaims(tokenString, gojwt.MapClaims{}, func(*gojwt.Token) (any, error) {
		return s.signingKey, nil
	})
	if err != nil {
		return nil, mapError(err)
	}

	claims, ok := token.Claims.(gojwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	return Claims(claims), nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, gojwt.ErrTokenExpired):
		return errors.Join(ErrExpiredToken, err)
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid):
		return errors.Join(ErrInvalidSignature, err)
	case errors.Is(err, gojwt.ErrTokenUnverifiable):
		return errors.Join(ErrUnexpectedSigningAlg, err)
	default:
		return errors.Join(ErrInvalidToken, err)
	}
}

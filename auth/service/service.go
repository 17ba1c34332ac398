package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"

	"github.com/goserg/eventhub/internal/config"
)

const CookieName = "token"

var (
	ErrForbidden     = errors.New("access denied")
	ErrNotAuthorized = errors.New("unauthorized")
	ErrTokenExpired  = errors.New("token expired")
)

// Service issues and checks HS256 tokens whose subject is a user id.
type Service struct {
	cfg config.Auth
	now func() time.Time
}

func New(cfg config.Auth) *Service {
	return &Service{
		cfg: cfg,
		now: time.Now,
	}
}

// Enabled reports whether a signing key is configured.
func (s *Service) Enabled() bool {
	return s.cfg.Token != ""
}

func (s *Service) Generate(userID int64) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, errors.New("auth token is not configured")
	}
	now := s.now()
	expirationTime := now.Add(s.cfg.Expiration)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Id:        uuid.NewString(),
		ExpiresAt: expirationTime.Unix(),
		IssuedAt:  now.Unix(),
		Subject:   strconv.FormatInt(userID, 10),
	})
	tokenString, err := token.SignedString([]byte(s.cfg.Token))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expirationTime, nil
}

// Verify returns the user id the token was issued for.
func (s *Service) Verify(tokenString string) (int64, error) {
	if tokenString == "" {
		return 0, ErrNotAuthorized
	}
	token, err := jwt.ParseWithClaims(tokenString, &jwt.StandardClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrNotAuthorized
		}
		return []byte(s.cfg.Token), nil
	})
	if err != nil {
		ve := &jwt.ValidationError{}
		if errors.As(err, &ve) && ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			return 0, ErrTokenExpired
		}
		return 0, ErrNotAuthorized
	}
	claims, ok := token.Claims.(*jwt.StandardClaims)
	if !ok || !token.Valid {
		return 0, ErrNotAuthorized
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrNotAuthorized
	}
	return id, nil
}

// Authorize checks that the token belongs to the user named in the path.
func (s *Service) Authorize(tokenString string, pathUserID int64) error {
	id, err := s.Verify(tokenString)
	if err != nil {
		return err
	}
	if id != pathUserID {
		return ErrForbidden
	}
	return nil
}

package masomo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/dgrijalva/jwt-go"
)

// Claims is the payload the backend signs into its tokens.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// ParseClaims decodes token without checking its signature. The client
// only reads what the backend told it; the backend verifies on every call.
func ParseClaims(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, errors.New("token is empty")
	}

	var claims Claims
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("parse token claims: %w", err)
	}
	if claims.Subject == "" {
		return Claims{}, errors.New("token has no subject")
	}
	return claims, nil
}

func sessionFromToken(token string) (domain.Session, error) {
	claims, err := ParseClaims(token)
	if err != nil {
		return domain.Session{}, err
	}

	session := domain.Session{
		AccessToken:  token,
		RefreshToken: token,
		UserID:       domain.UserID(claims.Subject),
		Username:     claims.Username,
		Roles:        append([]string(nil), claims.Roles...),
		Role:         domain.PrimaryRole(claims.Roles),
		IssuedAt:     unixTime(claims.IssuedAt),
		ExpiresAt:    unixTime(claims.ExpiresAt),
		OrigIssuedAt: unixTime(claims.OrigIssuedAt),
	}
	return session, nil
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

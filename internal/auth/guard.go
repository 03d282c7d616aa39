package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/wb-go/wbf/ginext"

	"wedsite/internal/dto"
)

const RoleAdmin = "admin"

var ErrInvalidToken = errors.New("invalid admin token")

// AdminGuard checks HS256 bearer tokens on organizer routes. A nil guard or
// an empty secret lets every request through.
type AdminGuard struct {
	secret []byte
	ttl    time.Duration
}

func NewAdminGuard(secret string, ttl time.Duration) *AdminGuard {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &AdminGuard{secret: []byte(secret), ttl: ttl}
}

func (g *AdminGuard) Enabled() bool {
	return g != nil && len(g.secret) > 0
}

func (g *AdminGuard) IssueToken(subject string) (string, error) {
	if !g.Enabled() {
		return "", errors.New("admin guard has no secret")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": RoleAdmin,
		"iat":  now.Unix(),
		"exp":  now.Add(g.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
}

func (g *AdminGuard) Verify(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["role"] != RoleAdmin {
		return fmt.Errorf("%w: missing admin role", ErrInvalidToken)
	}
	return nil
}

// Authorize reports whether the request may see admin data.
func (g *AdminGuard) Authorize(c *ginext.Context) bool {
	if !g.Enabled() {
		return true
	}
	header := c.GetHeader("Authorization")
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenString == "" {
		return false
	}
	return g.Verify(strings.TrimSpace(tokenString)) == nil
}

func (g *AdminGuard) Middleware() gin.HandlerFunc {
	return func(c *ginext.Context) {
		if !g.Authorize(c) {
			dto.UnauthorizedError(c)
			return
		}
		c.Next()
	}
}

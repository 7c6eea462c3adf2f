package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys populated by AuthMiddleware.
const (
	ContextWaID     = "waID"
	ContextUserName = "userName"
)

// Identity is the already-resolved caller the core trusts. Token issuance
// belongs to the auth service; this layer only verifies and extracts.
type Identity struct {
	WaID string
	Name string
}

type claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// TokenParser verifies HS256 bearer tokens carrying the caller's wa_id.
type TokenParser struct {
	secret []byte
}

// NewTokenParser constructs a TokenParser.
func NewTokenParser(secret string) *TokenParser {
	return &TokenParser{secret: []byte(secret)}
}

// Parse verifies a raw token string.
func (p *TokenParser) Parse(token string) (Identity, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	if parsed.Subject == "" {
		return Identity{}, errors.New("token missing subject")
	}
	return Identity{WaID: parsed.Subject, Name: parsed.Name}, nil
}

// ParseHeader verifies an Authorization header value of the form "Bearer x".
func (p *TokenParser) ParseHeader(header string) (Identity, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return Identity{}, errors.New("invalid authorization header")
	}
	return p.Parse(parts[1])
}

// AuthMiddleware validates the Authorization header and stores the resolved
// identity in the gin context.
func AuthMiddleware(parser *TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		identity, err := parser.ParseHeader(header)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextWaID, identity.WaID)
		c.Set(ContextUserName, identity.Name)
		c.Next()
	}
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dynamo-works/claude-engine/internal/apierror"
	"github.com/dynamo-works/claude-engine/internal/catalog"
	"github.com/dynamo-works/claude-engine/internal/config"
	"github.com/dynamo-works/claude-engine/internal/models"
	keysvc "github.com/dynamo-works/claude-engine/internal/services/key"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Auth methods recorded on the request context.
const (
	AuthMethodAPIKey = "api_key"
	AuthMethodBearer = "bearer"
	AuthMethodMock   = "mock"
)

// KeyValidator resolves an API key hash to its active row.
type KeyValidator interface {
	LookupByHash(ctx context.Context, hash string) (*models.APIKey, error)
}

// ProfileUpserter records identity sightings from verified tokens.
type ProfileUpserter interface {
	Upsert(userID, email, displayName, role string, groups []string)
}

// Authenticator is the auth stage. Mode mock trusts headers for local
// development; mode token requires an engine key or a signed bearer token.
type Authenticator struct {
	mode      string
	jwtSecret []byte
	keys      KeyValidator
	profiles  ProfileUpserter
	logger    *zap.Logger
}

func NewAuthenticator(cfg config.AuthConfig, keys KeyValidator, profiles ProfileUpserter, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		mode:      cfg.Mode,
		jwtSecret: []byte(cfg.JWTSecret),
		keys:      keys,
		profiles:  profiles,
		logger:    logger,
	}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := GetRequestContext(r)

		token := bearerToken(r)

		switch {
		case strings.HasPrefix(token, keysvc.KeyPrefix):
			if err := a.authenticateAPIKey(r.Context(), rc, token); err != nil {
				apierror.Write(w, rc.RequestID, err)
				return
			}
		case strings.HasPrefix(token, "eyJ"):
			if err := a.authenticateBearer(rc, token); err != nil {
				apierror.Write(w, rc.RequestID, err)
				return
			}
		default:
			if a.mode == config.AuthModeMock {
				a.authenticateMock(rc, r)
				break
			}
			apierror.Write(w, rc.RequestID, apierror.AuthRequired())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return ""
}

func (a *Authenticator) authenticateAPIKey(ctx context.Context, rc *RequestContext, raw string) error {
	if a.keys == nil || !keysvc.IsValidKeyFormat(raw) {
		return apierror.InvalidAPIKey()
	}

	k, err := a.keys.LookupByHash(ctx, keysvc.HashKey(raw))
	if err != nil {
		return apierror.InvalidAPIKey()
	}

	rc.UserID = k.UserID
	rc.UserEmail = k.UserEmail
	rc.Role = k.Role
	rc.APIKeyID = k.ID.String()
	rc.AuthMethod = AuthMethodAPIKey
	return nil
}

func (a *Authenticator) authenticateBearer(rc *RequestContext, raw string) error {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return apierror.InvalidToken()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return apierror.InvalidToken()
	}

	userID := firstString(claims, "sub", "id", "email")
	if userID == "" {
		return apierror.InvalidToken()
	}
	email := stringClaim(claims, "email")
	displayName := firstString(claims, "displayName", "name")
	groups := stringSliceClaim(claims, "groups")

	role := stringClaim(claims, "role")
	if len(groups) > 0 {
		role = catalog.RoleFromGroups(groups)
	} else if !catalog.IsKnownRole(role) {
		role = catalog.DefaultRole
	}

	rc.UserID = userID
	rc.UserEmail = email
	rc.DisplayName = displayName
	rc.Role = role
	rc.AuthMethod = AuthMethodBearer

	if a.profiles != nil {
		a.profiles.Upsert(userID, email, displayName, role, groups)
	}
	return nil
}

func (a *Authenticator) authenticateMock(rc *RequestContext, r *http.Request) {
	email := r.Header.Get("X-Mock-User-Email")
	if email == "" {
		email = r.Header.Get("X-User-Email")
	}
	if email == "" {
		email = "test@dynamo.works"
	}

	role := r.Header.Get("X-Mock-User-Role")
	if role == "" {
		role = r.Header.Get("X-User-Role")
	}
	if !catalog.IsKnownRole(role) {
		role = catalog.DefaultRole
	}

	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		if i := strings.Index(email, "@"); i > 0 {
			userID = email[:i]
		} else {
			userID = email
		}
	}

	rc.UserID = userID
	rc.UserEmail = email
	rc.Role = role
	rc.AuthMethod = AuthMethodMock
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v := stringClaim(claims, k); v != "" {
			return v
		}
	}
	return ""
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func stringSliceClaim(claims jwt.MapClaims, key string) []string {
	raw, ok := claims[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
	"github.com/CameronXie/tailor-ledger/internal/enforcer"
	"github.com/CameronXie/tailor-ledger/internal/keyfetcher"
)

type contextKey string

const (
	UserIDContextKey contextKey = "user_id"

	authHeaderMissingMessage       = "authorization header missing"
	invalidAuthHeaderFormatMessage = "invalid authorization header format"
	internalServerErrorMessage     = "internal server error"
	invalidTokenMessage            = "invalid token"
	forbiddenMessage               = "forbidden"
)

// JWTConfig names the issuer and audience a token must carry.
type JWTConfig struct {
	Issuer   string
	Audience string
}

// JWTAuthorizationMiddleware validates bearer tokens, checks the access policy
// for the request path and method, then puts the user id into the context.
type JWTAuthorizationMiddleware struct {
	enforcer         enforcer.Enforcer
	publicKeyFetcher keyfetcher.PublicKeyFetcher
	config           JWTConfig
	logger           *slog.Logger
}

func (m *JWTAuthorizationMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.JSONErrorResponse(w, http.StatusUnauthorized, authHeaderMissingMessage)
			return
		}

		token, err := extractToken(authHeader)
		if err != nil {
			m.logger.ErrorContext(r.Context(), "failed to extract token", "error", err)
			response.JSONErrorResponse(w, http.StatusUnauthorized, invalidAuthHeaderFormatMessage)
			return
		}

		publicKey, err := m.publicKeyFetcher.FetchPublicKey()
		if err != nil {
			m.logger.ErrorContext(r.Context(), "failed to fetch public key", "error", err)
			response.JSONErrorResponse(w, http.StatusInternalServerError, internalServerErrorMessage)
			return
		}

		claims := new(jwt.RegisteredClaims)
		_, err = jwt.ParseWithClaims(
			token,
			claims,
			func(_ *jwt.Token) (any, error) { return publicKey, nil },
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
			jwt.WithIssuer(m.config.Issuer),
			jwt.WithAudience(m.config.Audience),
			jwt.WithExpirationRequired(),
		)
		if err != nil {
			m.logger.ErrorContext(r.Context(), "failed to parse token", "error", err)
			response.JSONErrorResponse(w, http.StatusUnauthorized, invalidTokenMessage)
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			m.logger.ErrorContext(r.Context(), "failed to get subject from token claims")
			response.JSONErrorResponse(w, http.StatusUnauthorized, invalidTokenMessage)
			return
		}

		ok, err := m.enforcer.Enforce(
			r.Context(),
			&enforcer.AccessRequest{
				Subject:  userID.String(),
				Resource: r.URL.Path,
				Action:   r.Method,
			},
		)

		if err != nil || !ok {
			m.logger.ErrorContext(r.Context(), "failed to enforce access policy", "error", err, "path", r.URL.Path)
			response.JSONErrorResponse(w, http.StatusForbidden, forbiddenMessage)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// extractToken extracts a Bearer token from the Authorization header.
func extractToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("invalid authorization header format")
	}

	return parts[1], nil
}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDContextKey, id)
}

// UserIDFromContext returns the id set by the authorization middleware.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	return id, ok
}

func NewJWTAuthorizationMiddleware(
	e enforcer.Enforcer,
	publicKeyFetcher keyfetcher.PublicKeyFetcher,
	config JWTConfig,
	logger *slog.Logger,
) Middleware {
	return &JWTAuthorizationMiddleware{
		enforcer:         e,
		publicKeyFetcher: publicKeyFetcher,
		config:           config,
		logger:           logger,
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CameronXie/tailor-ledger/internal/api/rest/response"
	"github.com/CameronXie/tailor-ledger/internal/authn"
	"github.com/CameronXie/tailor-ledger/internal/domain"
	"github.com/CameronXie/tailor-ledger/internal/keyfetcher"
)

const (
	defaultTokenTTL               = 24 * time.Hour
	invalidEmailOrPasswordMessage = "invalid email or password"
	emailTakenMessage             = "email already registered"
)

// TokenConfig describes the access tokens handed out on sign-in and sign-up.
type TokenConfig struct {
	Issuer   string
	Audience string
	TTL      time.Duration
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// tokenIssuer signs RS256 tokens whose subject is the user id.
type tokenIssuer struct {
	privateKeyFetcher keyfetcher.PrivateKeyFetcher
	config            TokenConfig
	now               func() time.Time
}

func (i *tokenIssuer) issue(user *domain.User) (*TokenResponse, error) {
	ttl := i.config.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	now := i.now()
	token := jwt.NewWithClaims(
		jwt.SigningMethodRS256,
		jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    i.config.Issuer,
			Audience:  jwt.ClaimStrings{i.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	)

	privateKey, err := i.privateKeyFetcher.FetchPrivateKey()
	if err != nil {
		return nil, err
	}

	signed, err := token.SignedString(privateKey)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{Token: signed, TokenType: "Bearer", ExpiresIn: int64(ttl.Seconds())}, nil
}

// SignInHandler exchanges email and password for an access token.
type SignInHandler struct {
	authenticator authn.Authenticator
	issuer        *tokenIssuer
	logger        *slog.Logger
}

func (h *SignInHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := new(Credentials)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.JSONErrorResponse(w, http.StatusBadRequest, invalidRequestBodyMessage)
		return
	}

	user, err := h.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authn.ErrInvalidCredentials) {
			h.logger.WarnContext(r.Context(), "failed to authenticate user", "email", req.Email, "error", err)
			response.JSONErrorResponse(w, http.StatusUnauthorized, invalidEmailOrPasswordMessage)
			return
		}

		h.logger.ErrorContext(r.Context(), "failed to authenticate user", "email", req.Email, "error", err)
		response.JSONErrorResponse(w, http.StatusInternalServerError, internalServerErrorMessage)
		return
	}

	token, err := h.issuer.issue(user)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to generate JWT", "error", err)
		response.JSONErrorResponse(w, http.StatusInternalServerError, internalServerErrorMessage)
		return
	}

	response.JSONResponse(w, http.StatusOK, token)
}

func NewSignInHandler(
	authenticator authn.Authenticator,
	privateKeyFetcher keyfetcher.PrivateKeyFetcher,
	config TokenConfig,
	logger *slog.Logger,
) http.Handler {
	return &SignInHandler{
		authenticator: authenticator,
		issuer:        &tokenIssuer{privateKeyFetcher: privateKeyFetcher, config: config, now: time.Now},
		logger:        logger,
	}
}

// SignUpHandler creates an account and signs the new user in.
type SignUpHandler struct {
	registrar authn.Registrar
	issuer    *tokenIssuer
	logger    *slog.Logger
}

func (h *SignUpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := new(Credentials)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.JSONErrorResponse(w, http.StatusBadRequest, invalidRequestBodyMessage)
		return
	}

	user, err := h.registrar.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authn.ErrEmailTaken) {
			response.JSONErrorResponse(w, http.StatusConflict, emailTakenMessage)
			return
		}

		writeError(w, r, h.logger, "failed to register user", err)
		return
	}

	h.logger.InfoContext(r.Context(), "user registered", "user_id", user.ID.String())

	token, err := h.issuer.issue(user)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to generate JWT", "error", err)
		response.JSONErrorResponse(w, http.StatusInternalServerError, internalServerErrorMessage)
		return
	}

	response.JSONResponse(w, http.StatusCreated, token)
}

func NewSignUpHandler(
	registrar authn.Registrar,
	privateKeyFetcher keyfetcher.PrivateKeyFetcher,
	config TokenConfig,
	logger *slog.Logger,
) http.Handler {
	return &SignUpHandler{
		registrar: registrar,
		issuer:    &tokenIssuer{privateKeyFetcher: privateKeyFetcher, config: config, now: time.Now},
		logger:    logger,
	}
}

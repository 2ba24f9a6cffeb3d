package handlers

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/CameronXie/tailor-ledger/internal/authn"
	"github.com/CameronXie/tailor-ledger/internal/domain"
)

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockRegistrar struct {
	mock.Mock
}

func (m *mockRegistrar) Register(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockPrivateKeyFetcher struct {
	mock.Mock
}

func (m *mockPrivateKeyFetcher) FetchPrivateKey() (*rsa.PrivateKey, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rsa.PrivateKey), args.Error(1)
}

var tokenConfig = TokenConfig{Issuer: "tailor-ledger", Audience: "tailor-ledger-api", TTL: time.Hour}

func TestSignInHandler_ServeHTTP(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	user := &domain.User{ID: uuid.New(), Email: "liu@example.com", Roles: []string{domain.RoleOwner}}

	cases := map[string]struct {
		requestBody     string
		mockAuthResult  *domain.User
		mockAuthError   error
		mockKeyError    error
		expectedStatus  int
		expectedMessage string
		expectedLog     map[string]string
	}{
		"Should Return 200 and Token on Successful Authentication": {
			requestBody:    `{"email": "liu@example.com", "password": "secret1"}`,
			mockAuthResult: user,
			expectedStatus: http.StatusOK,
		},
		"Should Return 400 on Invalid Request Body": {
			requestBody:     "invalid",
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: invalidRequestBodyMessage,
		},
		"Should Return 401 on Authentication Failure": {
			requestBody:     `{"email": "liu@example.com", "password": "wrong"}`,
			mockAuthError:   authn.ErrInvalidCredentials,
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: invalidEmailOrPasswordMessage,
			expectedLog: map[string]string{
				"level": "WARN",
				"msg":   "failed to authenticate user",
				"email": "liu@example.com",
			},
		},
		"Should Return 500 on Repository Failure": {
			requestBody:     `{"email": "liu@example.com", "password": "secret1"}`,
			mockAuthError:   errors.New("db down"),
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: internalServerErrorMessage,
			expectedLog: map[string]string{
				"level": "ERROR",
				"error": "db down",
			},
		},
		"Should Return 500 on Key Fetch Failure": {
			requestBody:     `{"email": "liu@example.com", "password": "secret1"}`,
			mockAuthResult:  user,
			mockKeyError:    errors.New("key fetch failed"),
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: internalServerErrorMessage,
			expectedLog: map[string]string{
				"level": "ERROR",
				"msg":   "failed to generate JWT",
				"error": "key fetch failed",
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			mockAuth := new(mockAuthenticator)
			mockKeyFetcher := new(mockPrivateKeyFetcher)
			handler := NewSignInHandler(mockAuth, mockKeyFetcher, tokenConfig, slog.New(slog.NewJSONHandler(&buf, nil)))

			mockAuth.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).Return(tc.mockAuthResult, tc.mockAuthError)

			if tc.mockKeyError != nil {
				mockKeyFetcher.On("FetchPrivateKey").Return(nil, tc.mockKeyError)
			} else {
				mockKeyFetcher.On("FetchPrivateKey").Return(privateKey, nil)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/signin", strings.NewReader(tc.requestBody)))

			assert.Equal(t, tc.expectedStatus, w.Code)

			if tc.expectedMessage != "" {
				assert.Equal(t, fmt.Sprintf("{\"error\":%q}\n", tc.expectedMessage), w.Body.String())
			}

			if tc.expectedStatus == http.StatusOK {
				assertToken(t, w.Body.Bytes(), &privateKey.PublicKey, user.ID)
			}

			for k, v := range tc.expectedLog {
				assert.Contains(t, buf.String(), fmt.Sprintf("%q:%q", k, v))
			}
		})
	}
}

func TestSignUpHandler_ServeHTTP(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	user := &domain.User{ID: uuid.New(), Email: "new@example.com", Roles: []string{domain.RoleOwner}}

	cases := map[string]struct {
		requestBody    string
		registerResult *domain.User
		registerError  error
		expectedStatus int
		expectedBody   string
	}{
		"should create the account and return a token": {
			requestBody:    `{"email":"new@example.com","password":"secret1"}`,
			registerResult: user,
			expectedStatus: http.StatusCreated,
		},
		"should reject a taken email": {
			requestBody:    `{"email":"new@example.com","password":"secret1"}`,
			registerError:  authn.ErrEmailTaken,
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"email already registered"}`,
		},
		"should report validation problems": {
			requestBody:    `{"email":"new@example.com","password":"abc"}`,
			registerError:  &domain.ValidationError{Field: "password", Message: "password must be at least 6 characters"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid password","message":"password must be at least 6 characters"}`,
		},
		"should reject malformed bodies": {
			requestBody:    `[`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid request body"}`,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			registrar := new(mockRegistrar)
			registrar.On("Register", mock.Anything, mock.Anything, mock.Anything).Return(tc.registerResult, tc.registerError)

			keys := new(mockPrivateKeyFetcher)
			keys.On("FetchPrivateKey").Return(privateKey, nil)

			handler := NewSignUpHandler(registrar, keys, tokenConfig, slog.New(slog.DiscardHandler))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(tc.requestBody)))

			assert.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, w.Body.String())
			} else {
				assertToken(t, w.Body.Bytes(), &privateKey.PublicKey, user.ID)
			}
		})
	}
}

func assertToken(t *testing.T, body []byte, publicKey *rsa.PublicKey, userID uuid.UUID) {
	t.Helper()

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims := new(jwt.RegisteredClaims)
	_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (any, error) { return publicKey, nil },
		jwt.WithIssuer(tokenConfig.Issuer),
		jwt.WithAudience(tokenConfig.Audience),
	)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
}

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupAndLogin(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.doJSON(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "Alice@Example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "User created successfully", body["message"])
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.NotContains(t, user, "password")

	resp, body = env.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Login successful", body["message"])
	assert.NotEmpty(t, body["token"])
}

func TestSignupErrors(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice")

	tests := []struct {
		name    string
		payload map[string]string
		code    string
		message string
	}{
		{
			name:    "duplicate email",
			payload: map[string]string{"username": "alice2", "email": "alice@example.com", "password": "secret123"},
			code:    models.CodeDuplicate,
			message: "email is already registered",
		},
		{
			name:    "duplicate username",
			payload: map[string]string{"username": "alice", "email": "other@example.com", "password": "secret123"},
			code:    models.CodeDuplicate,
			message: "username is already taken",
		},
		{
			name:    "short password",
			payload: map[string]string{"username": "carol", "email": "carol@example.com", "password": "123"},
			code:    models.CodeValidation,
		},
		{
			name:    "bad username",
			payload: map[string]string{"username": "no spaces", "email": "x@example.com", "password": "secret123"},
			code:    models.CodeValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.doJSON(t, http.MethodPost, "/api/auth/signup", "", tt.payload)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.code, body["code"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["error"])
			}
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "alice")

	resp, body := env.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid credentials", body["error"])

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, _ = env.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.signup(t, "alice")
	env.signup(t, "bob")

	resp, body := env.doJSON(t, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, userID, body["user"].(map[string]any)["id"])

	resp, body = env.doJSON(t, http.MethodPut, "/api/auth/profile", token, map[string]string{
		"username": "alice_w",
		"bio":      "writes things",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Profile updated successfully", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice_w", user["username"])
	assert.Equal(t, "writes things", user["bio"])

	resp, body = env.doJSON(t, http.MethodPut, "/api/auth/profile", token, map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "username is already taken", body["error"])
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.signup(t, "alice")

	sign := func(claims jwt.RegisteredClaims, secret string) string {
		str, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return str
	}
	base := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    "inkwell-api",
		Audience:  jwt.ClaimStrings{"inkwell-client"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := base
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	unknownUser := base
	unknownUser.Subject = models.NewID()

	tests := []struct {
		name           string
		header         string
		query          string
		expectedStatus int
	}{
		{"valid bearer", "Bearer " + token, "", http.StatusOK},
		{"lowercase scheme", "bearer " + token, "", http.StatusOK},
		{"missing header", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"query token outside websocket routes", "", "?token=" + token, http.StatusUnauthorized},
		{"expired", "Bearer " + sign(expired, testSecret), "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(base, "another-secret"), "", http.StatusUnauthorized},
		{"unknown user", "Bearer " + sign(unknownUser, testSecret), "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/profile"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, body := env.do(t, req)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusUnauthorized {
				assert.Equal(t, models.CodeUnauthorized, body["code"])
			}
		})
	}
}

func TestAuthRequired_DeactivatedUser(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.signup(t, "alice")

	user, err := env.store.Users.GetByID(t.Context(), userID)
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, env.store.Users.Update(t.Context(), user))

	resp, _ := env.doJSON(t, http.MethodGet, "/api/auth/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

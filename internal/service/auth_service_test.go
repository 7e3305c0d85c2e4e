package service

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTokens = TokenConfig{
	Secret:   "test-secret-that-is-long-enough-123",
	Issuer:   "inkwell-api",
	Audience: "inkwell-client",
	TTL:      168 * time.Hour,
}

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(testutil.NewSQLiteStore(t).Users, testTokens)
}

func assertAppError(t *testing.T, err error, code, message string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

func TestAuthService_SignupAndLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{Username: "alice", Email: " Alice@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.True(t, res.User.IsActive)
	assert.NotEqual(t, "secret1", res.User.Password)

	userID, err := svc.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)

	login, err := svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = svc.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong-pass"})
	assertAppError(t, err, models.CodeValidation, "invalid credentials")

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	assertAppError(t, err, models.CodeValidation, "invalid credentials")
}

func TestAuthService_SignupValidation(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    SignupInput
		field string
	}{
		{"short username", SignupInput{Username: "al", Email: "a@x.com", Password: "secret1"}, "username"},
		{"bad username chars", SignupInput{Username: "al ice!", Email: "a@x.com", Password: "secret1"}, "username"},
		{"bad email", SignupInput{Username: "alice", Email: "not-an-email", Password: "secret1"}, "email"},
		{"short password", SignupInput{Username: "alice", Email: "a@x.com", Password: "123"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.in)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, models.CodeValidation, appErr.Code)
			require.NotEmpty(t, appErr.Fields)
			assert.Equal(t, tt.field, appErr.Fields[0].Field)
		})
	}
}

func TestAuthService_SignupDuplicates(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, SignupInput{Username: "alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, SignupInput{Username: "alice2", Email: "A@X.com", Password: "secret1"})
	assertAppError(t, err, models.CodeDuplicate, "email is already registered")

	_, err = svc.Signup(ctx, SignupInput{Username: "alice", Email: "b@x.com", Password: "secret1"})
	assertAppError(t, err, models.CodeDuplicate, "username is already taken")
}

func TestAuthService_LoginDeactivated(t *testing.T) {
	store := testutil.NewSQLiteStore(t)
	svc := NewAuthService(store.Users, testTokens)
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{Username: "alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	res.User.IsActive = false
	require.NoError(t, store.Users.Update(ctx, res.User))

	_, err = svc.Login(ctx, LoginInput{Email: "a@x.com", Password: "secret1"})
	assertAppError(t, err, models.CodeValidation, "account is deactivated")

	_, err = svc.Authenticate(ctx, res.Token)
	assertAppError(t, err, models.CodeUnauthorized, "")
}

func TestAuthService_ParseTokenRejects(t *testing.T) {
	svc := newAuthService(t)
	userID := models.NewID()

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.RegisteredClaims) string {
		tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return tok
	}
	valid := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    testTokens.Issuer,
		Audience:  jwt.ClaimStrings{testTokens.Audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := valid
	wrongAudience.Audience = jwt.ClaimStrings{"other"}
	noExpiry := valid
	noExpiry.ExpiresAt = nil
	badSubject := valid
	badSubject.Subject = "42"

	secret := []byte(testTokens.Secret)
	cases := map[string]string{
		"expired":        sign(jwt.SigningMethodHS256, secret, expired),
		"wrong issuer":   sign(jwt.SigningMethodHS256, secret, wrongIssuer),
		"wrong audience": sign(jwt.SigningMethodHS256, secret, wrongAudience),
		"no expiry":      sign(jwt.SigningMethodHS256, secret, noExpiry),
		"bad subject":    sign(jwt.SigningMethodHS256, secret, badSubject),
		"wrong secret":   sign(jwt.SigningMethodHS256, []byte("another-secret"), valid),
		"wrong alg":      sign(jwt.SigningMethodHS512, secret, valid),
		"garbage":        "not.a.token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ParseToken(token)
			assertAppError(t, err, models.CodeUnauthorized, "")
		})
	}

	got, err := svc.ParseToken(sign(jwt.SigningMethodHS256, secret, valid))
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestAuthService_AuthenticateUnknownUser(t *testing.T) {
	svc := newAuthService(t)
	token, err := svc.IssueToken(models.NewID())
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), token)
	assertAppError(t, err, models.CodeUnauthorized, "user not found")
}

func TestAuthService_UpdateProfile(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()
	alice, err := svc.Signup(ctx, SignupInput{Username: "alice", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, SignupInput{Username: "bob", Email: "b@x.com", Password: "secret1"})
	require.NoError(t, err)

	bio := "  hello  "
	name := "alice_w"
	user, err := svc.UpdateProfile(ctx, UpdateProfileInput{UserID: alice.User.ID, Username: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "alice_w", user.Username)
	assert.Equal(t, "hello", user.Bio)

	taken := "bob"
	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: alice.User.ID, Username: &taken})
	assertAppError(t, err, models.CodeDuplicate, "username is already taken")

	bad := "x!"
	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: alice.User.ID, Username: &bad})
	assertAppError(t, err, models.CodeValidation, "")

	profile, err := svc.Profile(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice_w", profile.Username)
}

func TestAuthService_IssueTokenRequiresSecret(t *testing.T) {
	svc := NewAuthService(nil, TokenConfig{})
	_, err := svc.IssueToken(models.NewID())
	assert.Error(t, err)
}

package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, c jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestNew_DecodesUser(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{
		"user_id":    7,
		"username":   "ada",
		"email":      "ada@example.com",
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"role":       "admin",
		"exp":        exp.Unix(),
	})

	s, err := New(token)
	require.NoError(t, err)

	user := s.User()
	assert.Equal(t, 7, user.Id)
	assert.Equal(t, "Ada", user.DisplayName())
	assert.True(t, s.IsAdmin())
	assert.True(t, s.ExpiresAt().Equal(exp))

	got, ok := s.BearerToken()
	assert.True(t, ok)
	assert.Equal(t, token, got)
}

func TestAuthenticated_RespectsExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := New(signedToken(t, jwt.MapClaims{"user_id": 1, "exp": exp.Unix()}))
	require.NoError(t, err)

	s.WithClock(func() time.Time { return exp.Add(-time.Minute) })
	assert.True(t, s.Authenticated())

	s.WithClock(func() time.Time { return exp.Add(time.Minute) })
	assert.False(t, s.Authenticated())
}

func TestNew_RejectsGarbage(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrNoCredential)

	_, err = New("not-a-token")
	assert.Error(t, err)
}

func TestAnonymous(t *testing.T) {
	s := Anonymous()
	_, ok := s.BearerToken()
	assert.False(t, ok)
	assert.False(t, s.Authenticated())
	assert.False(t, s.IsAdmin())
}

func TestStaffClaimMeansAdmin(t *testing.T) {
	s, err := New(signedToken(t, jwt.MapClaims{"id": 3, "username": "ops", "is_staff": true}))
	require.NoError(t, err)
	assert.True(t, s.IsAdmin())
	assert.Equal(t, 3, s.User().Id)
	assert.Equal(t, "ops", s.User().DisplayName())
}

package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	apperrors "carrental/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = strings.Repeat("k", 32)

func TestCapabilities(t *testing.T) {
	customer := &Actor{UserID: "u1", Role: "customer"}
	admin := &Actor{UserID: "a1", Role: "admin"}

	assert.True(t, customer.Can(BookingsCreate))
	assert.True(t, customer.Can(PaymentsCreate))
	assert.False(t, customer.Can(CarsWrite))
	assert.False(t, customer.Can(BookingsManage))

	for _, c := range allCapabilities {
		assert.True(t, admin.Can(c), "admin should hold %s", c)
	}

	assert.Empty(t, CapabilitiesFor("ghost"))
	var nobody *Actor
	assert.False(t, nobody.Can(CarsWrite))
}

func TestAuthorize(t *testing.T) {
	customer := &Actor{UserID: "u1", Role: "customer"}
	admin := &Actor{UserID: "a1", Role: "admin"}

	tests := []struct {
		name     string
		actor    *Actor
		cap      Capability
		ownerID  string
		wantCode string
	}{
		{name: "owner allowed", actor: customer, cap: BookingsManage, ownerID: "u1"},
		{name: "capability allowed", actor: admin, cap: BookingsManage, ownerID: "u1"},
		{name: "stranger forbidden", actor: customer, cap: BookingsManage, ownerID: "u2", wantCode: apperrors.CodeForbidden},
		{name: "empty owner is not ownership", actor: &Actor{Role: "customer"}, cap: UsersRead, ownerID: "", wantCode: apperrors.CodeForbidden},
		{name: "anonymous", actor: nil, cap: BookingsCreate, wantCode: apperrors.CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.cap, tt.ownerID)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestActorContext(t *testing.T) {
	assert.Nil(t, ActorFrom(context.Background()))

	actor := &Actor{UserID: "u1", Role: "customer"}
	ctx := WithActor(context.Background(), actor)
	assert.Same(t, actor, ActorFrom(ctx))
}

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(secret, time.Hour)

	token, _, err := m.Issue("507f1f77bcf86cd799439011", "admin")
	require.NoError(t, err)

	actor, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "507f1f77bcf86cd799439011", actor.UserID)
	assert.Equal(t, "admin", actor.Role)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager(secret, time.Hour)

	expired := NewTokenManager(secret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue("u1", "customer")
	require.NoError(t, err)

	other, _, err := NewTokenManager(strings.Repeat("x", 32), time.Hour).Issue("u1", "customer")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "carrental", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"expired":      old,
		"wrong secret": other,
		"alg none":     none,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(4)

	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	ok, err := h.Compare(hash, "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Compare("not-a-hash", "s3cret-pass")
	assert.Error(t, err)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	account := activeAccount(t, "Abcdef1!")
	tok := mustToken(t, svc, account, time.Now().UTC())

	claims, err := svc.parseAccessToken(tok.Token)
	require.NoError(t, err)
	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "42", claims.UserID)
	require.Equal(t, account.Email, claims.Email)
	require.Equal(t, svc.cfg.Issuer, claims.Issuer)
	require.Equal(t, jwt.ClaimStrings(svc.cfg.Audience), claims.Audience)

	id, err := accountIDFromClaims(claims)
	require.NoError(t, err)
	require.Equal(t, account.ID, id)
}

func TestParseAccessToken_Expired(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	account := activeAccount(t, "Abcdef1!")
	// Выпущен час назад — далеко за leeway.
	tok := mustToken(t, svc, account, time.Now().UTC().Add(-time.Hour))

	_, err := svc.parseAccessToken(tok.Token)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	otherCfg := testCfg()
	otherCfg.JWTSecret = "another-secret"
	other := New(nil, otherCfg)

	account := activeAccount(t, "Abcdef1!")
	tok := mustToken(t, other, account, time.Now().UTC())

	_, err := svc.parseAccessToken(tok.Token)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessToken_WrongAlgorithm(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Токен подписан HS512 тем же секретом — алгоритм вне whitelist.
	claims := accessClaims{
		UserID: "42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			Issuer:    svc.cfg.Issuer,
			Subject:   "42",
			Audience:  jwt.ClaimStrings(svc.cfg.Audience),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).
		SignedString([]byte(svc.cfg.JWTSecret))
	require.NoError(t, err)

	_, err = svc.parseAccessToken(signed)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessToken_MissingSubject(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			Issuer:    svc.cfg.Issuer,
			Audience:  jwt.ClaimStrings(svc.cfg.Audience),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(svc.cfg.JWTSecret))
	require.NoError(t, err)

	_, err = svc.parseAccessToken(signed)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessToken_WrongIssuerOrAudience(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	foreignCfg := testCfg()
	foreignCfg.Issuer = "another-service"
	foreign := New(nil, foreignCfg)

	account := activeAccount(t, "Abcdef1!")
	tok := mustToken(t, foreign, account, time.Now().UTC())

	_, err := svc.parseAccessToken(tok.Token)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenExpiry_WorksOnExpiredToken(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	account := activeAccount(t, "Abcdef1!")
	issued := time.Now().UTC().Add(-time.Hour)
	tok := mustToken(t, svc, account, issued)

	// Сроки игнорируются, подпись — нет.
	expiresAt, err := svc.parseTokenExpiry(tok.Token)
	require.NoError(t, err)
	require.WithinDuration(t, issued.Add(svc.cfg.AccessTokenTTL), expiresAt, time.Second)
}

func TestParseTokenExpiry_RejectsGarbage(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	for _, bad := range []string{"", "garbage", "a.b.c"} {
		_, err := svc.parseTokenExpiry(bad)
		require.Error(t, err, "token %q", bad)
		require.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestAccountIDFromClaims_Invalid(t *testing.T) {
	t.Parallel()

	for _, sub := range []string{"", "abc", "0", "-5"} {
		claims := &accessClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
		}
		_, err := accountIDFromClaims(claims)
		require.Error(t, err, "subject %q", sub)
		require.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestGenerateAccessToken_UniquePerAccount(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	now := time.Now().UTC()
	a := activeAccount(t, "Abcdef1!")
	b := activeAccount(t, "Abcdef1!")
	b.ID = 43
	b.Email = "other@example.com"

	ta, err := svc.generateAccessToken(context.Background(), a, now)
	require.NoError(t, err)
	tb, err := svc.generateAccessToken(context.Background(), b, now)
	require.NoError(t, err)

	require.NotEqual(t, ta.Token, tb.Token)
}

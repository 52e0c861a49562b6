package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenServiceImpl implements the TokenService interface with a secret and
// TTL per token kind. The signing method is pinned to HS256; validation
// rejects anything else regardless of the token's own alg header.
type TokenServiceImpl struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenService creates a new TokenService instance from the startup config
func NewTokenService(cfg Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		accessKey:  []byte(cfg.GetAccessSigningKey()),
		refreshKey: []byte(cfg.GetRefreshSigningKey()),
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		issuer:     cfg.GetIssuer(),
		audience:   cfg.GetAudience(),
		logger:     logger,
	}
}

// SignAccessToken mints a short-lived token carrying the identity's profile
// claims alongside the registered set.
func (ts *TokenServiceImpl) SignAccessToken(identity Identity) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	claims := &JWTClaims{
		RegisteredClaims: ts.registeredClaims(identity.ID(), ts.accessTTL),
		UID:              identity.ID(),
		TokenUse:         TokenUseAccess,
		UserEmail:        identity.Email(),
		UserName:         identity.Username(),
		UserFullName:     identity.FullName(),
	}

	return ts.signClaims(claims, ts.accessKey)
}

// SignRefreshToken mints a long-lived token with minimal claims: the subject
// id and the registered set only.
func (ts *TokenServiceImpl) SignRefreshToken(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("subject must not be empty", errors.CategoryInternal)
	}

	claims := &JWTClaims{
		RegisteredClaims: ts.registeredClaims(subject, ts.refreshTTL),
		UID:              subject,
		TokenUse:         TokenUseRefresh,
	}

	return ts.signClaims(claims, ts.refreshKey)
}

// ValidateAccess parses and validates an access token, returning structured claims
func (ts *TokenServiceImpl) ValidateAccess(tokenString string) (AuthClaims, error) {
	return ts.validate(tokenString, ts.accessKey, TokenUseAccess)
}

// ValidateRefresh parses and validates a refresh token, returning structured claims
func (ts *TokenServiceImpl) ValidateRefresh(tokenString string) (AuthClaims, error) {
	return ts.validate(tokenString, ts.refreshKey, TokenUseRefresh)
}

func (ts *TokenServiceImpl) registeredClaims(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    ts.issuer,
		Subject:   subject,
		Audience:  aud,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	ensureTokenID(&claims)

	return claims
}

func (ts *TokenServiceImpl) signClaims(claims *JWTClaims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

func (ts *TokenServiceImpl) validate(tokenString string, key []byte, use TokenUse) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrUnableToDecodeSession
	}

	if claims.TokenUse != use {
		ts.logger.Error("TokenService validate token use mismatch", "want", use, "got", claims.TokenUse)
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

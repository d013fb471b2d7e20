package utils

import (
	"errors"
	"sync"
	"time"
)

var (
	blacklistedTokens = make(map[string]time.Time)
	blacklistMutex    sync.RWMutex
)

// BlacklistToken revokes token until expiry.
func BlacklistToken(token string, expiry time.Time) {
	blacklistMutex.Lock()
	defer blacklistMutex.Unlock()
	blacklistedTokens[token] = expiry
}

func IsTokenBlacklisted(token string) bool {
	blacklistMutex.RLock()
	defer blacklistMutex.RUnlock()

	expiry, exists := blacklistedTokens[token]
	return exists && time.Now().Before(expiry)
}

// PurgeBlacklist drops expired entries and returns how many were removed.
func PurgeBlacklist() int {
	blacklistMutex.Lock()
	defer blacklistMutex.Unlock()

	removed := 0
	now := time.Now()
	for token, expiry := range blacklistedTokens {
		if now.After(expiry) {
			delete(blacklistedTokens, token)
			removed++
		}
	}
	return removed
}

// ValidateToken parses tokenString and rejects revoked tokens.
func ValidateToken(tokenString string) (*CustomClaims, error) {
	if IsTokenBlacklisted(tokenString) {
		return nil, errors.New("token has been revoked")
	}
	claims, err := ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.UserID == 0 {
		return nil, errors.New("invalid user ID in token")
	}
	return claims, nil
}

package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Token errors returned by Verify.
var (
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("download token signature mismatch")
	ErrTokenExpired   = errors.New("download token expired")
)

// DownloadGrant is the payload carried by a signed download token.
type DownloadGrant struct {
	ExportID  string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues HMAC-SHA256 download tokens for exported files.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer. Non-positive TTLs fall back to one day.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token granting access to path for the configured TTL.
func (s *SignedURLSigner) Sign(exportID, path string) (string, DownloadGrant, error) {
	if exportID == "" || path == "" {
		return "", DownloadGrant{}, fmt.Errorf("export id and path required")
	}
	if strings.Contains(exportID, ".") {
		return "", DownloadGrant{}, fmt.Errorf("export id must not contain '.'")
	}
	if len(s.secret) == 0 {
		return "", DownloadGrant{}, fmt.Errorf("signing secret missing")
	}

	grant := DownloadGrant{
		ExportID:  exportID,
		Path:      path,
		ExpiresAt: s.now().Add(s.ttl).Truncate(time.Second),
	}
	expiry := strconv.FormatInt(grant.ExpiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(path))
	token := strings.Join([]string{exportID, expiry, encodedPath, s.mac(exportID, expiry, encodedPath)}, ".")
	return token, grant, nil
}

// Verify checks the token signature and expiry. allowExpired skips the expiry check.
func (s *SignedURLSigner) Verify(token string, allowExpired bool) (DownloadGrant, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return DownloadGrant{}, ErrTokenMalformed
	}
	exportID, expiry, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.mac(exportID, expiry, encodedPath)), []byte(signature)) {
		return DownloadGrant{}, ErrTokenSignature
	}
	unix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return DownloadGrant{}, ErrTokenMalformed
	}
	rawPath, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return DownloadGrant{}, ErrTokenMalformed
	}

	grant := DownloadGrant{ExportID: exportID, Path: string(rawPath), ExpiresAt: time.Unix(unix, 0)}
	if !allowExpired && s.now().After(grant.ExpiresAt) {
		return DownloadGrant{}, ErrTokenExpired
	}
	return grant, nil
}

func (s *SignedURLSigner) mac(parts ...string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

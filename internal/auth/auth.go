// Package auth gates the dashboard behind a local credentials file.
//
// Credentials live in a JSON file of {"users": [{"username", "password"}]}.
// A successful login writes a session file holding an opaque token; the
// session is valid until its expiry passes or the file is removed.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL bounds how long a session file stays valid.
const DefaultSessionTTL = 24 * time.Hour

// Credentials is the parsed credentials file.
type Credentials struct {
	Users []User `json:"users"`
}

// User is one username/password pair.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is the persisted login state.
type Session struct {
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoadCredentials reads the credentials file. A missing file yields an
// empty user list, which rejects every login.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, nil
		}
		return Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return creds, nil
}

// Check verifies a username/password pair against the loaded credentials.
func (c Credentials) Check(username, password string) bool {
	if username == "" || password == "" {
		return false
	}
	ok := false
	for _, u := range c.Users {
		userMatch := subtle.ConstantTimeCompare([]byte(u.Username), []byte(username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1
		if userMatch && passMatch {
			ok = true
		}
	}
	return ok
}

// GenerateToken derives an opaque session token from the username, a
// random nonce and the current time.
func GenerateToken(username string) string {
	nonce := uuid.NewString()
	raw := fmt.Sprintf("%s:%s:%d", username, nonce, time.Now().Unix())
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// SaveSession writes a session file with a fresh token for username.
func SaveSession(path, username string, ttl time.Duration) (Session, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := time.Now().UTC()
	sess := Session{
		Username:  username,
		Token:     GenerateToken(username),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return Session{}, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Session{}, fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Session{}, fmt.Errorf("failed to write session: %w", err)
	}
	return sess, nil
}

// LoadSession reads the session file and validates its expiry. An expired
// session file is removed; a missing file means "not logged in". The
// boolean reports whether a valid session exists.
func LoadSession(path string) (Session, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("failed to read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, false, fmt.Errorf("failed to parse session: %w", err)
	}
	if sess.Token == "" || !time.Now().Before(sess.ExpiresAt) {
		// Stale sessions are cleaned up eagerly. Removal failure is not
		// worth surfacing; the session is rejected either way.
		_ = os.Remove(path)
		return Session{}, false, nil
	}
	return sess, true, nil
}

// ClearSession removes the session file. Missing file is not an error.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// Login checks the credentials and, on success, persists a session.
func Login(credentialsPath, sessionPath, username, password string, ttl time.Duration) (Session, error) {
	creds, err := LoadCredentials(credentialsPath)
	if err != nil {
		return Session{}, err
	}
	if len(creds.Users) == 0 {
		return Session{}, fmt.Errorf("no users configured in %s", credentialsPath)
	}
	if !creds.Check(username, password) {
		return Session{}, fmt.Errorf("invalid username or password")
	}
	return SaveSession(sessionPath, username, ttl)
}

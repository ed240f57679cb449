package gateway

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const (
	// challengeSize is the number of random bytes in an auth challenge.
	challengeSize = 32

	// maxAuthAttempts is how many bad signatures a console may present
	// before the connection is dropped.
	maxAuthAttempts = 3
)

// AuthHandler runs the HMAC challenge-response handshake consoles must
// complete before issuing RPC calls.
type AuthHandler struct {
	sharedSecret []byte
}

// NewAuthHandler creates an auth handler keyed with the shared secret.
func NewAuthHandler(sharedSecret string) *AuthHandler {
	return &AuthHandler{sharedSecret: []byte(sharedSecret)}
}

// GenerateChallenge produces a hex-encoded random challenge.
func (a *AuthHandler) GenerateChallenge() (string, error) {
	buf := make([]byte, challengeSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate challenge: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func (a *AuthHandler) sign(challenge string) string {
	mac := hmac.New(sha256.New, a.sharedSecret)
	mac.Write([]byte(challenge))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an HMAC-SHA256 signature over a challenge in
// constant time.
func (a *AuthHandler) VerifySignature(challenge, signature string) bool {
	expected := a.sign(challenge)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func authFailure(message string) AuthResult {
	return AuthResult{Event: "auth.failure", Success: false, Message: message}
}

// HandleAuthResponse checks a console's signature against its pending
// challenge. Challenges are single use: success or not, the stored
// challenge survives only until the attempt limit is reached or the
// handshake completes.
func (a *AuthHandler) HandleAuthResponse(client *Client, signature string) AuthResult {
	if client.Challenge == "" {
		return authFailure("No challenge found")
	}

	if !a.VerifySignature(client.Challenge, signature) {
		client.AuthAttempts++
		if client.AuthAttempts >= maxAuthAttempts {
			return authFailure("Too many failed attempts")
		}
		return authFailure("Invalid signature")
	}

	client.Authenticated = true
	client.State = StateAuthenticated
	client.AuthAttempts = 0
	client.Challenge = ""

	return AuthResult{Event: "auth.success", Success: true}
}

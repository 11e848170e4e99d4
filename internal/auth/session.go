// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid seat token")

// Seat identifies a player's place in a room. A seat token proves the bearer
// joined the room as that player.
type Seat struct {
	RoomID   string
	PlayerID string
}

type seatClaims struct {
	Room string `json:"room"`
	jwt.RegisteredClaims
}

// Signer issues and verifies ed25519-signed seat tokens.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	// ttl is how long tokens stay valid; zero means no exp claim.
	ttl time.Duration
	now func() time.Time
}

// NewSigner generates a fresh ed25519 key pair at runtime. Tokens do not
// survive a restart, and neither do in-memory rooms.
func NewSigner(ttl time.Duration) (*Signer, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Signer{privateKey: privateKey, publicKey: publicKey, ttl: ttl, now: time.Now}, nil
}

// NewSignerFromFiles reads a raw ed25519 key pair, so every instance sharing a
// Redis store accepts the same tokens.
func NewSignerFromFiles(privatePath, publicPath string, ttl time.Duration) (*Signer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("malformed ed25519 key files")
	}
	return &Signer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// Issue signs a token with "sub" = player id and "room" = room id.
func (s *Signer) Issue(seat Seat) (string, error) {
	now := s.now()
	claims := seatClaims{
		Room: seat.RoomID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  seat.PlayerID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// Verify checks a token's signature and expiry and returns the seat it grants.
func (s *Signer) Verify(tokenString string) (Seat, error) {
	var claims seatClaims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Seat{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !t.Valid || claims.Subject == "" || claims.Room == "" {
		return Seat{}, ErrInvalidToken
	}
	return Seat{RoomID: claims.Room, PlayerID: claims.Subject}, nil
}

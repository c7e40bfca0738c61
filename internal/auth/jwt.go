package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
)

const seatTokenIssuer = "elemental-conquest"

// Claims identifies one seat in one game. Players are anonymous; holding
// the token is what makes a request act for the seat.
type Claims struct {
	GameID string `json:"game_id"`
	Seat   int    `json:"seat"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates seat tokens.
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a JWTManager with the given secret.
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: 7 * 24 * time.Hour,
	}
}

// GenerateSeatToken creates a token for a seat. Each call gets a fresh
// token id, so two tokens for the same seat never compare equal.
func (m *JWTManager) GenerateSeatToken(gameID string, seat int) (string, error) {
	now := time.Now()
	claims := &Claims{
		GameID: gameID,
		Seat:   seat,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    seatTokenIssuer,
			Subject:   gameID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT string, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(seatTokenIssuer))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.GameID == "" || claims.Seat < 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SeatToken is returned to a player when they take a seat.
type SeatToken struct {
	Token     string `json:"token"`
	GameID    string `json:"game_id"`
	Seat      int    `json:"seat"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// IssueSeat wraps GenerateSeatToken in the response shape handlers return.
func (m *JWTManager) IssueSeat(gameID string, seat int) (*SeatToken, error) {
	token, err := m.GenerateSeatToken(gameID, seat)
	if err != nil {
		return nil, err
	}
	return &SeatToken{
		Token:     token,
		GameID:    gameID,
		Seat:      seat,
		ExpiresIn: int(m.expiry.Seconds()),
	}, nil
}

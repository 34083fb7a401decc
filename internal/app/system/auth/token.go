package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Credential is an opaque bearer token.
type Credential string

// Identity is the authenticated subject of a request.
type Identity struct {
	UserID primitive.ObjectID
	Role   string
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == "admin" }

// Claims is the JWT payload.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

var errNoSecret = errors.New("no signing secret configured")

// signer issues and checks HS256 tokens.
type signer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func (s *signer) issue(id Identity) (Credential, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, errNoSecret
	}
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID.Hex(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: id.Role,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return Credential(tok), exp, nil
}

func (s *signer) verify(cred Credential) (Identity, error) {
	if len(s.secret) == 0 {
		return Identity{}, errNoSecret
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	claims := &Claims{}
	tok, err := parser.ParseWithClaims(string(cred), claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !tok.Valid {
		return Identity{}, errors.New("invalid token")
	}
	uid, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: uid, Role: claims.Role}, nil
}

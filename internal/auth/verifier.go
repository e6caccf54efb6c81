package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken cobre token ausente, malformado, expirado ou com
// assinatura errada. O cliente recebe sempre o mesmo erro genérico para
// não ganhar pistas sobre qual parte falhou.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity é o que o serviço de autenticação externo atesta sobre quem
// está do outro lado da conexão.
type Identity struct {
	UserID string
	Name   string
}

// Verifier transforma a credencial apresentada no handshake em uma
// identidade verificada.
type Verifier interface {
	Verify(token string) (*Identity, error)
}

// JWTVerifier valida tokens HS256 emitidos pelo serviço de auth com o
// segredo compartilhado.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(tokenStr string) (*Identity, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}

	name, _ := claims["name"].(string)
	return &Identity{UserID: sub, Name: name}, nil
}

// Sign emite um token de desenvolvimento/teste com o mesmo formato que
// o serviço de auth usa. O cliente de linha de comando se apoia nisso.
func Sign(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptySecret   = errors.New("jwt: secret vacío")
	ErrInvalidClaims = errors.New("jwt: claims inválidos")
)

// Subject identidad que viaja en el token: usuario, empresa emisora y rol.
type Subject struct {
	UserID    string
	CompanyID string
	Role      string // "admin" | "facturador" | "bodeguero"
}

// Claims claims estándar más la identidad del emisor de documentos.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
}

// Generate firma (HS256) un token para el sujeto con vigencia en minutos.
func Generate(secret, issuer string, expMinutes int, s Subject) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID:    s.UserID,
		CompanyID: s.CompanyID,
		Role:      s.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma, expiración y (si se indica) emisor, y devuelve el sujeto.
func Parse(secret, issuer, tokenString string) (Subject, error) {
	if secret == "" {
		return Subject{}, ErrEmptySecret
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return Subject{}, fmt.Errorf("jwt: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.CompanyID == "" {
		return Subject{}, ErrInvalidClaims
	}
	return Subject{UserID: claims.UserID, CompanyID: claims.CompanyID, Role: claims.Role}, nil
}

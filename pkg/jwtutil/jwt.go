package jwtutil

import (
	"time"

	"membership-service/pkg/config"

	"github.com/golang-jwt/jwt/v4"
)

var (
	secret     = []byte("secret-key")
	expiration = time.Hour * 24
)

// Initialize sets the signing key and token lifetime from configuration
func Initialize(cfg *config.JWTConfig) {
	secret = []byte(cfg.SigningKey)
	expiration = cfg.ExpirationTime
}

// StaffClaims represents the JWT claims for a branch staff session
type StaffClaims struct {
	BranchID   uint   `json:"branch_id"`
	BranchName string `json:"branch_name"`
	BranchSlug string `json:"branch_slug"`
	jwt.RegisteredClaims
}

// MemberClaims represents the JWT claims for a member session
type MemberClaims struct {
	MemberID uint   `json:"member_id"`
	Mobile   string `json:"mobile"`
	jwt.RegisteredClaims
}

// GenerateStaffToken creates a JWT token for branch staff
func GenerateStaffToken(branchID uint, name, slug string) (string, error) {
	claims := StaffClaims{
		BranchID:   branchID,
		BranchName: name,
		BranchSlug: slug,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// GenerateMemberToken creates a JWT token for a member session
func GenerateMemberToken(memberID uint, mobile string) (string, error) {
	claims := MemberClaims{
		MemberID: memberID,
		Mobile:   mobile,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateStaffToken validates and parses a staff JWT token
func ValidateStaffToken(tokenString string) (*StaffClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &StaffClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*StaffClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}

// ValidateMemberToken validates and parses a member JWT token
func ValidateMemberToken(tokenString string) (*MemberClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &MemberClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*MemberClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}

package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sokatips/mpesa-backend/internal/config"
	"github.com/sokatips/mpesa-backend/internal/models"
)

// mpesaPhonePattern is the provider's required format: country code 254
// followed by nine digits, twelve digits total.
var mpesaPhonePattern = regexp.MustCompile(`^254[0-9]{9}$`)

// ValidateMpesaPhone reports whether msisdn is a valid M-Pesa number.
func ValidateMpesaPhone(msisdn string) bool {
	return mpesaPhonePattern.MatchString(msisdn)
}

// FormatPredictionMessage renders a purchased prediction package as the SMS
// body sent to the buyer.
func FormatPredictionMessage(p *models.Prediction, siteName string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Your predictions for %s:\n\n", p.Title)
	for _, m := range p.Matches {
		fmt.Fprintf(&sb, "%s vs %s: %s\n", m.HomeTeam, m.AwayTeam, m.Tip)
	}
	fmt.Fprintf(&sb, "\nGood luck! - %s", siteName)
	return sb.String()
}

// GenerateJWT issues a signed HMAC token for an authenticated user.
func GenerateJWT(userID, email, role string, cfg *config.Config) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(time.Second * time.Duration(cfg.JWT.ExpiresIn)).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWT.Secret))
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ValidateJWT parses and validates a token, returning its claims.
func ValidateJWT(tokenString string, cfg *config.Config) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

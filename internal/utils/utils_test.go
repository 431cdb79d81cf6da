package utils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sokatips/mpesa-backend/internal/config"
	"github.com/sokatips/mpesa-backend/internal/models"
)

func TestValidateMpesaPhone(t *testing.T) {
	valid := []string{"254712345678", "254100000000", "254799999999"}
	for _, phone := range valid {
		require.True(t, ValidateMpesaPhone(phone), phone)
	}

	invalid := []string{
		"",
		"0712345678",      // local format
		"+254712345678",   // plus prefix
		"25471234567",     // too short
		"2547123456789",   // too long
		"254712 345678",   // whitespace
		"25571234567a",    // wrong country code and non-digit
		"254712345678\n",  // trailing newline
		" 254712345678",   // leading space
	}
	for _, phone := range invalid {
		require.False(t, ValidateMpesaPhone(phone), "%q", phone)
	}
}

func TestFormatPredictionMessage(t *testing.T) {
	p := &models.Prediction{
		Title: "Weekend Bankers",
		Matches: []models.Match{
			{HomeTeam: "Gor Mahia", AwayTeam: "AFC Leopards", Tip: "1"},
			{HomeTeam: "Arsenal", AwayTeam: "Chelsea", Tip: "Over 2.5"},
		},
	}

	got := FormatPredictionMessage(p, "SokaTips")
	want := "Your predictions for Weekend Bankers:\n\n" +
		"Gor Mahia vs AFC Leopards: 1\n" +
		"Arsenal vs Chelsea: Over 2.5\n" +
		"\nGood luck! - SokaTips"
	require.Equal(t, want, got)
}

func TestJWTRoundTrip(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpiresIn = 3600

	token, err := GenerateJWT("user-1", "joe@example.com", "user", cfg)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, cfg)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims["sub"])
	require.Equal(t, "joe@example.com", claims["email"])
	require.Equal(t, "user", claims["role"])
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpiresIn = 3600

	token, err := GenerateJWT("user-1", "joe@example.com", "user", cfg)
	require.NoError(t, err)

	other := &config.Config{}
	other.JWT.Secret = "different-secret"
	_, err = ValidateJWT(token, other)
	require.Error(t, err)
}

func TestValidateJWTRejectsExpired(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpiresIn = -60

	token, err := GenerateJWT("user-1", "joe@example.com", "user", cfg)
	require.NoError(t, err)

	_, err = ValidateJWT(token, cfg)
	require.Error(t, err)
}

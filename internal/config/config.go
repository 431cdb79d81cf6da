package config

import (
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	JWT      JWTConfig
	Mpesa    MpesaConfig
	SMS      SMSConfig
	Audit    AuditConfig
	SiteName string
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int
}

// MpesaConfig holds Daraja API configuration
type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	MockAPI        bool
	PushTimeout    int // seconds
}

// SMSConfig holds SMS gateway configuration
type SMSConfig struct {
	BaseURL     string
	Username    string
	APIKey      string
	SenderID    string
	MockSMS     bool
	SendTimeout int // seconds
}

// AuditConfig holds audit log configuration
type AuditConfig struct {
	Path string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, environment variables take over
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("Server.Port", "4000")
	viper.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	viper.SetDefault("MongoDB.Database", "sokatips")
	viper.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	viper.SetDefault("Mpesa.BaseURL", "https://sandbox.safaricom.co.ke")
	viper.SetDefault("Mpesa.MockAPI", true)
	viper.SetDefault("Mpesa.PushTimeout", 30)
	viper.SetDefault("SMS.BaseURL", "https://api.africastalking.com")
	viper.SetDefault("SMS.MockSMS", true)
	viper.SetDefault("SMS.SendTimeout", 15)
	viper.SetDefault("Audit.Path", "audit.db")
	viper.SetDefault("SiteName", "SokaTips")
	viper.SetDefault("LogLevel", "info")
}

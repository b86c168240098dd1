package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "threatalytics-backend", cfg.App.Name)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenExpiration)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 200, cfg.LLM.DemoMaxTokens)
	assert.Empty(t, cfg.HTTP.CORSAllowOrigins, "no wildcard CORS fallback")
	assert.NotEmpty(t, cfg.Prompts.Analyze.System)
	assert.Zero(t, cfg.Prompts.Redact.Temperature)
	assert.Contains(t, cfg.Prompts.AskModes, "policy_audit")
	assert.Contains(t, cfg.Prompts.AskModes, "red_flag_finder")
}

func TestValidateProduction(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.App.Env = "production"

	err := cfg.validate()
	assert.Error(t, err, "production requires a JWT secret")

	cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Database.Password = "secret"
	cfg.Database.SSLMode = "require"
	cfg.Stripe.WebhookSecret = "whsec_test"
	cfg.LLM.APIKey = "sk-test"
	assert.NoError(t, cfg.validate())

	cfg.HTTP.CORSAllowOrigins = []string{"*"}
	assert.Error(t, cfg.validate(), "wildcard CORS is rejected in production")
}

func TestDSNEscapesCredentials(t *testing.T) {
	d := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "app",
		Password: "p@ss/word",
		DBName:   "threatalytics",
		SSLMode:  "disable",
	}
	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestPlanForPrice(t *testing.T) {
	s := StripeConfig{PriceIDs: map[string]string{
		"starter":      "price_starter",
		"professional": "price_pro",
	}}

	plan, ok := s.PlanForPrice("price_pro")
	assert.True(t, ok)
	assert.Equal(t, "professional", plan)

	_, ok = s.PlanForPrice("price_unknown")
	assert.False(t, ok)
}

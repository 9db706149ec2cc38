package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLoadConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.MongoURI)
	assert.Equal(t, "fieldfusion", cfg.MongoDB)
	assert.Equal(t, "ag", cfg.Weather.Community)
	assert.Equal(t, 20, cfg.Satellite.LookbackDays)
	assert.Equal(t, 0.4, cfg.Satellite.FallbackNDVI)
	assert.Equal(t, 90*time.Second, cfg.AnalyzeTimeout)
	assert.Len(t, cfg.CORSOrigins, 3)
	assert.Empty(t, cfg.SMTP.Host)
	assert.Equal(t, 10*time.Second, cfg.SMTP.Timeout)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("SATELLITE_PROCESS_URL", "http://proc.local/process")
	t.Setenv("SATELLITE_TOKEN", "tok")
	t.Setenv("POWER_BASE_URL", "http://power.local")
	t.Setenv("SMTP_HOST", "smtp.local")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PUBLIC_BASE_URL", "https://ff.example/")

	v := viper.New()
	setDefaults(v)
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, "http://proc.local/process", cfg.Satellite.ProcessURL)
	assert.Equal(t, "tok", cfg.Satellite.Token)
	assert.Equal(t, "http://power.local", cfg.Weather.BaseURL)
	assert.Equal(t, "smtp.local", cfg.SMTP.Host)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "https://ff.example", cfg.PublicBaseURL)
}

func TestLoadConfigFile(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader(`
mongo:
  db: fieldfusion_test
cors:
  origins: ["https://x.example"]
satellite:
  max_cloud_pct: 20
analyze:
  timeout: 45s
`)))
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "fieldfusion_test", cfg.MongoDB)
	assert.Equal(t, []string{"https://x.example"}, cfg.CORSOrigins)
	assert.Equal(t, 20, cfg.Satellite.MaxCloudPct)
	assert.Equal(t, 45*time.Second, cfg.AnalyzeTimeout)
}

func TestLoadConfigKeepsZeroFallbackNDVI(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	require.NoError(t, v.ReadConfig(strings.NewReader("satellite:\n  fallback_ndvi: 0\n")))
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Zero(t, cfg.Satellite.FallbackNDVI)

	v.Set("satellite.fallback_ndvi", 1.5)
	_, err = loadConfig(v)
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("jwt.secret", "")
	_, err := loadConfig(v)
	assert.Error(t, err)

	v = viper.New()
	setDefaults(v)
	v.Set("image.max_bytes", 0)
	_, err = loadConfig(v)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestJWTRoundTrip(t *testing.T) {
	uid := primitive.NewObjectID()
	tok, err := signJWT("s", uid, time.Now())
	require.NoError(t, err)

	got, err := parseJWT("s", tok)
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	_, err = parseJWT("other", tok)
	assert.Error(t, err)

	expired, err := signJWT("s", uid, time.Now().Add(-2*tokenTTL))
	require.NoError(t, err)
	_, err = parseJWT("s", expired)
	assert.Error(t, err)
}

package main

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"fieldfusion/mailer"
	"fieldfusion/satellite"
	"fieldfusion/weather"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	MongoURI       string // empty: in-memory store
	MongoDB        string
	JWTSecret      string
	PublicBaseURL  string
	CORSOrigins    []string
	AnalyzeTimeout time.Duration
	ImageMaxBytes  int64

	LogLevel  string
	LogFormat string

	Weather   weather.Config
	Satellite satellite.Config
	SMTP      mailer.SMTPConfig // Host empty: mail goes to the log
}

// setDefaults registers every key so AutomaticEnv can resolve it
// (mongo.uri <- MONGO_URI and so on).
func setDefaults(v *viper.Viper) {
	sat := satellite.DefaultConfig()

	v.SetDefault("port", "8080")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.db", "fieldfusion")
	v.SetDefault("jwt.secret", "change_me")
	v.SetDefault("public_base_url", "http://localhost:8080")
	v.SetDefault("cors.origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173")
	v.SetDefault("analyze.timeout", 90*time.Second)
	v.SetDefault("image.max_bytes", int64(10<<20))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("power.base_url", weather.DefaultBaseURL)
	v.SetDefault("power.community", weather.DefaultCommunity)
	v.SetDefault("power.timeout", weather.DefaultTimeout)

	v.SetDefault("satellite.process_url", sat.ProcessURL)
	v.SetDefault("satellite.token", "")
	v.SetDefault("satellite.lookback_days", sat.LookbackDays)
	v.SetDefault("satellite.max_cloud_pct", sat.MaxCloudPct)
	v.SetDefault("satellite.fallback_ndvi", sat.FallbackNDVI)
	v.SetDefault("satellite.timeout", sat.Timeout)
	v.SetDefault("satellite.rate", sat.RatePerSecond)
	v.SetDefault("satellite.burst", sat.Burst)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("smtp.timeout", 10*time.Second)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func loadConfig(v *viper.Viper) (Config, error) {
	sat := satellite.DefaultConfig()
	sat.ProcessURL = v.GetString("satellite.process_url")
	sat.Token = v.GetString("satellite.token")
	sat.LookbackDays = v.GetInt("satellite.lookback_days")
	sat.MaxCloudPct = v.GetInt("satellite.max_cloud_pct")
	sat.FallbackNDVI = v.GetFloat64("satellite.fallback_ndvi")
	sat.Timeout = v.GetDuration("satellite.timeout")
	sat.RatePerSecond = v.GetFloat64("satellite.rate")
	sat.Burst = v.GetInt("satellite.burst")

	cfg := Config{
		Port:           v.GetString("port"),
		MongoURI:       v.GetString("mongo.uri"),
		MongoDB:        v.GetString("mongo.db"),
		JWTSecret:      v.GetString("jwt.secret"),
		PublicBaseURL:  strings.TrimRight(v.GetString("public_base_url"), "/"),
		CORSOrigins:    splitList(v.GetStringSlice("cors.origins")),
		AnalyzeTimeout: v.GetDuration("analyze.timeout"),
		ImageMaxBytes:  v.GetInt64("image.max_bytes"),
		LogLevel:       v.GetString("log.level"),
		LogFormat:      v.GetString("log.format"),
		Weather: weather.Config{
			BaseURL:   v.GetString("power.base_url"),
			Community: v.GetString("power.community"),
			Timeout:   v.GetDuration("power.timeout"),
		},
		Satellite: sat,
		SMTP: mailer.SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
			Timeout:  v.GetDuration("smtp.timeout"),
		},
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt.secret must not be empty")
	}
	if c.AnalyzeTimeout <= 0 {
		return fmt.Errorf("analyze.timeout must be positive, got %s", c.AnalyzeTimeout)
	}
	if c.ImageMaxBytes <= 0 {
		return fmt.Errorf("image.max_bytes must be positive, got %d", c.ImageMaxBytes)
	}
	if n := c.Satellite.FallbackNDVI; math.IsNaN(n) || n < -1 || n > 1 {
		return fmt.Errorf("satellite.fallback_ndvi must be within [-1, 1], got %v", n)
	}
	return nil
}

// splitList accepts both a YAML list and a comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

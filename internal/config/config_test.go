package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8000")
	}
	if cfg.GRPCAddr != ":8080" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8080")
	}
	if cfg.JWTIssuer != "msgapi-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "msgapi-auth")
	}
	if cfg.JWTAudience != "msgapi" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "msgapi")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.DispatchKafkaTopic != "msgapi-dispatch" {
		t.Errorf("DispatchKafkaTopic = %q, want default", cfg.DispatchKafkaTopic)
	}
	if cfg.KafkaGroupID != "msgapi-dispatch-worker" {
		t.Errorf("KafkaGroupID = %q, want default", cfg.KafkaGroupID)
	}
	if cfg.SyncChannelPrefix != "channel-sync" {
		t.Errorf("SyncChannelPrefix = %q, want default", cfg.SyncChannelPrefix)
	}
	if cfg.OTelServiceName != "msgapi" {
		t.Errorf("OTelServiceName = %q, want msgapi", cfg.OTelServiceName)
	}
	if cfg.OTelInsecure {
		t.Error("OTelInsecure should default to false")
	}
	if cfg.OTelSampleRatio != 1 {
		t.Errorf("OTelSampleRatio = %v, want 1", cfg.OTelSampleRatio)
	}
	if cfg.RedisURL != "" || cfg.KafkaBrokers != "" || cfg.LokiURL != "" {
		t.Error("optional integrations should default to disabled")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9000")
	os.Setenv("GRPC_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("LOG_LEVEL", "DEBUG")
	os.Setenv("REDIS_URL", "redis://localhost:6379/1")
	os.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9000")
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.RedisURL != "redis://localhost:6379/1" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if !cfg.OTelInsecure {
		t.Error("OTelInsecure should be true")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	os.Clearenv()
	os.Setenv("LOG_LEVEL", "verbose")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should return error for unknown LOG_LEVEL")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestAccessTTL(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "30m", 30 * time.Minute},
		{"invalid", "invalid", 24 * time.Hour},
		{"zero", "0", 24 * time.Hour},
		{"negative", "-5m", 24 * time.Hour},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("JWT_ACCESS_TTL", tc.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.AccessTTL(); got != tc.want {
				t.Errorf("AccessTTL = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestKafkaBrokersList(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "localhost:9092", []string{"localhost:9092"}},
		{"trims and skips blanks", " a:9092, ,b:9092 ", []string{"a:9092", "b:9092"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{KafkaBrokers: tc.value}
			if got := cfg.KafkaBrokersList(); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("KafkaBrokersList = %v, want %v", got, tc.want)
			}
		})
	}

	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should have no brokers")
	}
}

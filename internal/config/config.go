// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root service configuration.
type Config struct {
	Service       ServiceConfig
	Pipeline      PipelineConfig
	Oracle        OracleConfig
	Recognizer    RecognizerConfig
	Audio         AudioConfig
	Kafka         KafkaConfig
	Render        RenderConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds service identity and listener settings.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
	GRPCPort  string
}

// PipelineConfig holds alignment and transcript tuning.
type PipelineConfig struct {
	BufferWindowMs          int64
	LookbackCapMs           int64
	MaxTranscriptWords      int
	MaxInterimsPerUtterance int
	SmallMax                float64
	NormalMax               float64
	FallbackTick            time.Duration
}

// OracleConfig holds prominence detector settings.
type OracleConfig struct {
	Provider              string
	ProminenceThreshold   float64
	MinSyllableDistMs     int64
	MinEnergyThreshold    float64
	CalibrationDurationMs int64
}

// RecognizerConfig holds speech recognition settings.
type RecognizerConfig struct {
	Provider       string
	LanguageCode   string
	SampleRateHz   int
	InterimResults bool
	AudioEncoding  string
	RemoteURL      string
}

// AudioConfig holds microphone capture settings.
type AudioConfig struct {
	Enabled      bool
	SampleRateHz int
	ChunkFrames  int
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicInterim string
	TopicFinal   string
	Principal    string
}

// RenderConfig holds caption renderer settings.
type RenderConfig struct {
	Enabled bool
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsPort string
}

// Load reads configuration from environment variables, falling back to
// defaults on missing or unparsable values.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-prosody-caption")

	return &Config{
		Service: ServiceConfig{
			Principal: principal,
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
			GRPCPort:  envOrDefault("GRPC_PORT", "50051"),
		},
		Pipeline: PipelineConfig{
			BufferWindowMs:          envOrDefaultInt64("PIPELINE_BUFFER_WINDOW_MS", 3000),
			LookbackCapMs:           envOrDefaultInt64("PIPELINE_LOOKBACK_CAP_MS", 2000),
			MaxTranscriptWords:      envOrDefaultInt("PIPELINE_MAX_TRANSCRIPT_WORDS", 20),
			MaxInterimsPerUtterance: envOrDefaultInt("PIPELINE_MAX_INTERIMS_PER_UTTERANCE", 500),
			SmallMax:                envOrDefaultFloat("PIPELINE_SMALL_MAX", 0.33),
			NormalMax:               envOrDefaultFloat("PIPELINE_NORMAL_MAX", 0.66),
			FallbackTick:            envOrDefaultDuration("PIPELINE_FALLBACK_TICK", 800*time.Millisecond),
		},
		Oracle: OracleConfig{
			Provider:              envOrDefault("ORACLE_PROVIDER", "energy"),
			ProminenceThreshold:   envOrDefaultFloat("ORACLE_PROMINENCE_THRESHOLD", 0.15),
			MinSyllableDistMs:     envOrDefaultInt64("ORACLE_MIN_SYLLABLE_DIST_MS", 120),
			MinEnergyThreshold:    envOrDefaultFloat("ORACLE_MIN_ENERGY_THRESHOLD", 0.01),
			CalibrationDurationMs: envOrDefaultInt64("ORACLE_CALIBRATION_DURATION_MS", 1500),
		},
		Recognizer: RecognizerConfig{
			Provider:       envOrDefault("RECOGNIZER_PROVIDER", "mock"),
			LanguageCode:   envOrDefault("RECOGNIZER_LANGUAGE_CODE", "en-US"),
			SampleRateHz:   envOrDefaultInt("RECOGNIZER_SAMPLE_RATE_HZ", 16000),
			InterimResults: envOrDefaultBool("RECOGNIZER_INTERIM_RESULTS", true),
			AudioEncoding:  envOrDefault("RECOGNIZER_AUDIO_ENCODING", "LINEAR16"),
			RemoteURL:      envOrDefault("RECOGNIZER_REMOTE_URL", "ws://localhost:2700"),
		},
		Audio: AudioConfig{
			Enabled:      envOrDefaultBool("AUDIO_CAPTURE_ENABLED", false),
			SampleRateHz: envOrDefaultInt("AUDIO_SAMPLE_RATE_HZ", 16000),
			ChunkFrames:  envOrDefaultInt("AUDIO_CHUNK_FRAMES", 1024),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      envOrDefaultList("KAFKA_BROKERS", nil),
			TopicInterim: envOrDefault("KAFKA_TOPIC_INTERIM", "captions.interim"),
			TopicFinal:   envOrDefault("KAFKA_TOPIC_FINAL", "captions.final"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Render: RenderConfig{
			Enabled: envOrDefaultBool("RENDER_ENABLED", true),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

package config

import "github.com/caarlos0/env/v6"

type Config struct {
	Server struct {
		Port           string   `env:"SERVER_PORT" envDefault:"5250"`
		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	}

	Database struct {
		Path string `env:"DATABASE_PATH" envDefault:"database/janusprop.db"`
	}

	Auth struct {
		// JWTSecret verifies bearer tokens. Identity issuing itself is
		// delegated upstream.
		JWTSecret string `env:"JWT_SECRET,required"`
	}

	Ingest struct {
		// Buffered capacity of the intake queue
		QueueSize int `env:"INGEST_QUEUE_SIZE" envDefault:"1000"`

		// Maximum number of properties to accumulate before upserting
		MaxBatchSize int `env:"INGEST_MAX_BATCH_SIZE" envDefault:"100"`

		// Maximum time to wait before flushing a non-full batch (in seconds)
		MaxBatchWaitTime int `env:"INGEST_BATCH_WAIT_TIME" envDefault:"30"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"INGEST_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"INGEST_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"INGEST_RETRY_DELAY" envDefault:"5"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

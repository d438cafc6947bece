// Package config loads typed configuration from environment variables.
//
// It wraps github.com/joho/godotenv (reading .env files) and
// github.com/caarlos0/env/v11 (parsing the environment into tagged structs).
// Each configuration type is parsed once per process and served from an
// in-memory cache afterwards.
//
// # Usage
//
//	type ClientConfig struct {
//		BaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:5000/api"`
//	}
//
//	// Optional: read extra env files before the first Load.
//	if err := config.LoadEnv(".env.local"); err != nil {
//		log.Fatal(err)
//	}
//
//	var cfg ClientConfig
//	config.MustLoad(&cfg)
//
// The default .env file in the working directory is read automatically on the
// first Load; its absence is not an error.
//
// # Errors
//
//   - ErrParsingConfig: env vars could not be parsed into the struct (e.g. a
//     missing required value).
//   - ErrNilPointer: nil pointer passed to Load.
//   - ErrLoadingEnvFile: an explicit file given to LoadEnv could not be read.
//
// ResetCache clears cached values and is meant for tests.
package config

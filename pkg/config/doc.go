// Package config loads typed configuration structs from the process
// environment.
//
// It wraps github.com/caarlos0/env/v11 for struct tag parsing and
// github.com/joho/godotenv for optional .env files. Files are read once per
// process and never override variables that are already set, so values
// exported by the deployment environment always win.
//
// # Usage
//
//	type Config struct {
//		DatabaseURL string `env:"DATABASE_URL,required"`
//		Debug       bool   `env:"DEBUG" envDefault:"false"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Nested structs can be namespaced with WithPrefix, which is how the pillar
// binary shares one variable set between its components.
package config

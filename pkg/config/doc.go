// Package config loads environment-driven configuration structs exactly
// once per type, with an optional .env file for local development.
//
// Every component of the engine declares its own Config struct with env
// tags and loads it through this package:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
// Loaded values are cached per type, so independent components can load
// the same configuration without re-parsing the environment.
package config

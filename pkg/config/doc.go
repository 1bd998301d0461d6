// Package config defines env-driven configuration structs shared by the
// auth core services. Load them once at startup with cleanenv.ReadEnv and
// treat the result as immutable.
package config

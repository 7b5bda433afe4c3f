// Package config loads service configuration with the priority
// defaults -> YAML file -> environment variables, and checks that the
// upstream credential is actually usable before the service starts.
package config

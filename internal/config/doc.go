// Package config loads drafter settings.
//
// Settings come from three layers, later layers winning:
//
//  1. Built-in defaults (Default)
//  2. The TOML file, by default $XDG_CONFIG_HOME/drafter/drafter.toml
//  3. DRAFTER_* environment variables
//
// Example file:
//
//	[history]
//	max_commands = 50
//
//	[storage]
//	backend = "file"
//	dir = "/var/lib/drafter"
//	max_age = "12h"
//
//	[logging]
//	level = "debug"
//
// A Reloader watches the file and reloads it on change. Invalid files are
// reported and the previous configuration is kept.
package config

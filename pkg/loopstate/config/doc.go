/*
Package config provides type-safe configuration extraction from map[string]any.

# Overview

config wraps a map[string]any and provides typed accessor methods that handle
missing keys and type mismatches gracefully by returning default values.
This is useful for extracting loopstate settings from YAML/JSON structures
without verbose type assertions and nil checks.

# Basic Usage

Create a Config from any map and extract values with defaults:

	cfg := config.New(map[string]any{
	    "safe":        false,
	    "cache_first": true,
	})

	safe := cfg.Bool("safe", true)          // false
	first := cfg.Bool("cache_first", true)  // true
	limit := cfg.Int("materialize_limit", 1<<20)

loopstate.FromConfig turns a Config into iterator options.

# File Loading

Load configuration from YAML or JSON files:

	cfg, err := config.FromFile("loopstate.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	// Or load from bytes
	cfg, err = config.FromYAML(yamlBytes)
	cfg, err = config.FromJSON(jsonBytes)

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation. However, if the original map is modified
externally, behavior is undefined.
*/
package config

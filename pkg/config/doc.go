// Package config provides configuration loading for the data logger.
//
// # Key Features
//
//   - Config: one structure covering the run location, the per-group buffer
//     budget, the frame codec, the flush worker, logging and tracing
//   - Load: viper-based loading of YAML, JSON or TOML files with
//     DATALOGGER_* environment overrides and ${VAR_NAME} substitution
//   - Tree: a viper-backed hierarchical ParameterTree with package
//     parameter files resolved as <root>/<package>/config/<file>
//
// # Usage
//
//	cfg, err := config.Load("datalogger.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// A configuration file:
//
//	directory: /var/log/robot
//	base_name: walk
//	allowed_buffer_size: 1048576
//	compression:
//	  algorithm: zstd
//	  level: default
//	flush:
//	  async: true
//	  queue_depth: 16
//	logging:
//	  level: ${LOG_LEVEL}
//
// Environment variables use the upper-cased key path with dots replaced
// by underscores:
//
//	DATALOGGER_ALLOWED_BUFFER_SIZE=4096
//	DATALOGGER_COMPRESSION_ALGORITHM=s2
package config

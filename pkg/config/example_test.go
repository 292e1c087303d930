package config_test

import (
	"fmt"
	"log"

	"github.com/ajitpratap0/datalogger/pkg/config"
)

// ExampleDefault demonstrates the configuration used when nothing is set.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Base Name: %s\n", cfg.BaseName)
	fmt.Printf("Buffer Budget: %d\n", cfg.AllowedBufferSize)
	fmt.Printf("Codec: %s/%s\n", cfg.Compression.Algorithm, cfg.Compression.Level)

	// Output:
	// Base Name: run
	// Buffer Budget: 0
	// Codec: lz4/fastest
}

// ExampleConfig_Validate shows how to validate a configuration
// before using it.
func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.AllowedBufferSize = 64 << 10
	cfg.Compression.Algorithm = "zstd"

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	cfg.Compression.Algorithm = "rar"
	fmt.Println(cfg.Validate() != nil)

	// Output:
	// true
}

// ExampleTree demonstrates reading logger settings from a parameter tree.
func ExampleTree() {
	tree := config.NewTree("")
	logging := tree.Sub("datalogger")

	_ = logging.Set("allowed_buffer_size", 4096)
	_ = logging.Set("base_name", "walk")

	fmt.Println(tree.GetInt64("datalogger.allowed_buffer_size"))
	fmt.Println(logging.GetString("base_name"))

	// Output:
	// 4096
	// walk
}

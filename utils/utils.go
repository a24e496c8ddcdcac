package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseArguments converts command-line arguments into a map of flags and values
func ParseArguments() map[string]string {
	args := make(map[string]string)

	// First, identify the command (verify/inspect)
	command := ""
	commandIndex := -1
	for i := 1; i < len(os.Args); i++ {
		if os.Args[i] == "verify" || os.Args[i] == "inspect" {
			command = os.Args[i]
			commandIndex = i
			break
		}
	}

	if command != "" {
		args["command"] = command
	}

	// Process all arguments, skipping the command
	for i := 1; i < len(os.Args); i++ {
		if i == commandIndex {
			continue
		}

		arg := os.Args[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Check if this is a boolean flag (no value)
			if i+1 >= len(os.Args) || strings.HasPrefix(os.Args[i+1], "--") {
				args[flagName] = "true"
			} else {
				// The next argument is the value
				args[flagName] = os.Args[i+1]
				i++ // Skip the value in the next iteration
			}
		}
	}

	return args
}

// GetDefaultDatabasePath returns the default path for the reference image cache
func GetDefaultDatabasePath() string {
	// Get the executable path
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return "reference.db"
	}

	// Return the default database path in the same directory as the executable
	return filepath.Join(filepath.Dir(exePath), "reference.db")
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s verify --lat=VALUE --lng=VALUE --images=PATH[,PATH...] [--db=PATH] [--config=PATH] [--threshold=N] [--workers=N] [--debug] [--logfile=PATH]\n", os.Args[0])
	fmt.Printf("  %s inspect --image=PATH [--config=PATH] [--debug] [--logfile=PATH]\n", os.Args[0])
	fmt.Printf("\nParameters:\n")
	fmt.Printf("  --lat, --lng  : Coordinate the listing claims to be at\n")
	fmt.Printf("  --images      : Comma-separated paths of uploaded listing photos\n")
	fmt.Printf("  --image       : Path of a single photo to inspect for cleanliness/privacy issues\n")
	fmt.Printf("  --db          : Path to the reference image cache (default: %s)\n", GetDefaultDatabasePath())
	fmt.Printf("  --config      : Path to a YAML config file (default: config.yaml)\n")
	fmt.Printf("  --threshold   : Minimum accepted correspondence count (default: 11)\n")
	fmt.Printf("  --workers     : Number of candidates evaluated in parallel\n")
	fmt.Printf("  --debug       : Enable debug mode (logs detailed information)\n")
	fmt.Printf("  --logfile     : Specify custom log file path (default: listinglens.log)\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s verify --lat=48.85837 --lng=2.294481 --images=front.jpg,lobby.jpg\n", os.Args[0])
	fmt.Printf("  %s inspect --image=bedroom.jpg --debug\n", os.Args[0])
}

// ParseCoordinate parses and validates a latitude or longitude value
func ParseCoordinate(value string, min, max float64) (float64, error) {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < min || parsed > max {
		return 0, fmt.Errorf("invalid coordinate value '%s' (expected %.0f..%.0f)", value, min, max)
	}
	return parsed, nil
}

// ParsePositiveInt parses a flag that must be a positive integer
func ParsePositiveInt(value string) (int, error) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return 0, fmt.Errorf("invalid value '%s' (expected a positive integer)", value)
	}
	return parsed, nil
}

// SplitImageList splits a comma-separated list of image paths
func SplitImageList(value string) []string {
	parts := strings.Split(value, ",")
	paths := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			paths = append(paths, trimmed)
		}
	}
	return paths
}

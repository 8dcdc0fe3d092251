package config

import "log"

// Global logging flags, set once by the CLI entry point
var (
	Verbose bool
	Debug   bool
)

// DebugLog logs a message only when debug mode is enabled
func DebugLog(format string, args ...interface{}) {
	if Debug {
		log.Printf("[DEBUG] "+format+"\n", args...)
	}
}

// VerboseLog logs a message when verbose or debug mode is enabled
func VerboseLog(format string, args ...interface{}) {
	if Verbose || Debug {
		log.Printf("[INFO] "+format+"\n", args...)
	}
}

// WarnLog logs a warning regardless of verbosity
func WarnLog(format string, args ...interface{}) {
	log.Printf("[WARN] "+format+"\n", args...)
}

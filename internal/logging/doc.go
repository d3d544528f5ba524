// Package logging provides structured logging for the wifiled tool.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the client. It provides both general logging
// functions and specialized functions for protocol-specific logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (hex dumps, frame parsing)
//   - Info: Normal operations (connections, state changes)
//   - Warn: Non-fatal issues (connection drops, retries)
//   - Error: Fatal issues (startup failures, critical errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Device connected",
//	    zap.String("remote_addr", "192.168.1.100"),
//	    zap.String("model", "HF-LPB100-ZJ200"),
//	)
//
// # Specialized Logging
//
// The package provides domain-specific logging functions:
//
// Connection Logging:
//
//	logging.LogConnection(remoteAddr, "connection_accepted")
//	logging.LogConnection(remoteAddr, "connection_closed")
//
// Raw Byte Logging:
//
//	logging.LogRawBytes("tcp send", frame)
//
// # Configuration
//
// Logging is silent by default. Set the WIFILED_LOG_LEVEL environment
// variable (or call Initialize with an explicit level) to enable output:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Output Format
//
// Logs are written to stdout in console format (human-readable):
//
//	2025-11-25T10:30:45.123-0800  DEBUG  tcp send
//	  length=5
//	  hex=7123 0fa3
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging

// Package logger provides structured logging for the whisper-flash
// services using zerolog.
//
// It supports JSON and console output formats, level configuration,
// and component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.NewFromEnv("worker").WithComponent("queue")
//	log.Info("task accepted", logger.Fields("task_id", id))
package logger

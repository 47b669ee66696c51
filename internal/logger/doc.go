// Package logger wraps zap with a context-scoped sugared logger.
//
// Services pull the logger from their context (FromContext, WithName, WithKV)
// and log through the KV helpers. The global level and format come from the
// log_level and log_format settings via Configure.
package logger

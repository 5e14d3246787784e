// Package requestid tags every request with a correlation id.
//
// The id travels in the X-Request-ID header, the request context and, through
// LoggerExtractor, every log line written with that context. Client supplied
// ids are kept when they are short and limited to [A-Za-z0-9_-].
package requestid

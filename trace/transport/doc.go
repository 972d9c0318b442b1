// Package transport moves flushed trace data between machines and files.
//
// A stream is a sequence of messages, each with a 9-byte header:
//
//	type (1) | channel (4, LE) | length (4, LE) | payload
//
// The first message of every stream is a preamble carrying the format
// version, checked by readers against [FormatConstraint]. Data messages
// carry whole ring drains as produced by trace.Log.Flush.
//
// [Writer], [FileSink] and [QUICSink] implement trace.Sink; [Reader] and
// [Receiver] take the stream apart again.
package transport

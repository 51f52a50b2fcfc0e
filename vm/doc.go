// Package vm implements the lambda runtime.
//
// This package contains:
//   - Reference-counted lambda objects with captures and an opaque payload
//   - Continuation frames and a trampoline that applies objects without
//     growing the native stack
//   - Static instances for primitives and the Church-encoded std values
//   - Numeral and byte I/O primitives
//   - A linker turning ir programs into compiled closures
//
// A Runtime is single-threaded. Every reference passed to an Impl is owned
// by the callee and must be released, forwarded or returned exactly once.
package vm

// Package archive extracts jar (zip) containers into a working directory and
// rebuilds them from it.
//
// Extract records an Index of the input: entry order, compression method,
// modification time, and a content digest for every file. Write walks the
// working directory and emits entries in Index order, so unmodified entries
// round-trip byte-for-byte and can be verified against their digests.
package archive

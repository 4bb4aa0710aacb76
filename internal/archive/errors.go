package archive

import "errors"

var (
	// ErrUnsafePath is returned for entry names that are absolute, contain
	// backslashes, or escape the extraction root.
	ErrUnsafePath = errors.New("archive: unsafe entry path")

	// ErrDuplicateEntry is returned when two entries share a name.
	ErrDuplicateEntry = errors.New("archive: duplicate entry")

	// ErrEntryTooLarge is returned when an entry exceeds the configured
	// maximum uncompressed size.
	ErrEntryTooLarge = errors.New("archive: entry too large")

	// ErrDigestMismatch is returned when an unmodified entry's content no
	// longer matches the digest recorded at extraction.
	ErrDigestMismatch = errors.New("archive: digest mismatch")
)

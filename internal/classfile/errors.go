package classfile

import (
	"errors"
	"fmt"
)

// ErrParse is the root of every structural decoding failure. A module that
// fails with ErrParse cannot be patched and must not be published.
var ErrParse = errors.New("classfile: malformed module")

var (
	ErrBadMagic       = fmt.Errorf("%w: bad magic", ErrParse)
	ErrTruncated      = fmt.Errorf("%w: unexpected end of data", ErrParse)
	ErrTrailingBytes  = fmt.Errorf("%w: trailing bytes after attributes", ErrParse)
	ErrBadConstantTag = fmt.Errorf("%w: unknown constant pool tag", ErrParse)
	ErrBadIndex       = fmt.Errorf("%w: constant pool index out of range", ErrParse)
	ErrBadCode        = fmt.Errorf("%w: malformed code attribute", ErrParse)
)

var (
	// ErrPoolFull is returned when an append would push the pool past 65535 slots.
	ErrPoolFull = errors.New("classfile: constant pool is full")
	// ErrBranchOverflow is returned when an inserted instruction pushes a
	// 16-bit branch offset out of range.
	ErrBranchOverflow = errors.New("classfile: branch offset overflow after relayout")
	// ErrCodeTooLarge is returned when a rewritten method exceeds the 64KiB code limit.
	ErrCodeTooLarge = errors.New("classfile: code exceeds 65535 bytes")
)

// offsetError carries the byte offset at which decoding failed.
type offsetError struct {
	off int
	err error
}

func (e *offsetError) Error() string {
	return fmt.Sprintf("%v (at offset %d)", e.err, e.off)
}

func (e *offsetError) Unwrap() error { return e.err }

// Package mp3err defines the encoder's explicit error taxonomy (spec
// §7). Every failure path returns one of these types rather than a
// bare string, following the teacher's consts.UnexpectedEOF pattern of
// a named struct implementing error so callers can errors.As it.
package mp3err

import "fmt"

// ConfigError is a class-1 error (spec §7): the caller's Config could
// not be resolved into valid internal Params. No output is produced.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("mp3enc: invalid config field %q: %s", e.Field, e.Reason)
}

// AllocError is a class-2 error: a requested working set would exceed a
// configured hard cap. Go has no explicit malloc-failure path, so this
// models the "resource errors" class spec §7 describes for a systems
// implementation that must report allocation failure explicitly.
type AllocError struct {
	Reason string
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("mp3enc: allocation failure: %s", e.Reason)
}

// ShortBufferError is a class-3 error: the caller's output buffer cannot
// hold the frame about to be emitted. No state is advanced.
type ShortBufferError struct {
	Need, Have int
}

func (e *ShortBufferError) Error() string {
	return fmt.Sprintf("mp3enc: output buffer too small: need %d, have %d", e.Need, e.Have)
}

// ClosedError is returned by every encode or Flush call on a session
// after Close (spec §8); a repeated Close itself returns nil.
type ClosedError struct{}

func (e *ClosedError) Error() string {
	return "mp3enc: session is closed"
}

// GainAnalysisInitError models spec §6.1's -6 return code, raised when an
// optional collaborator (ReplayGain-style loudness analysis) the caller
// asked for could not initialize.
type GainAnalysisInitError struct {
	Reason string
}

func (e *GainAnalysisInitError) Error() string {
	return fmt.Sprintf("mp3enc: gain analysis init failed: %s", e.Reason)
}

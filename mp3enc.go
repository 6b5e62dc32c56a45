// Package mp3enc is a from-scratch MPEG-1/2/2.5 Layer III encoder core:
// psychoacoustic modeling, noise-shaping quantization and bit-reservoir
// rate control, wired into a complete Layer III bitstream writer.
//
// The session type is Encoder. Construct one with NewEncoder, push PCM
// through the EncodeBuffer family, call Flush once at end of stream to
// drain the filterbank's overlap delay and write any trailing tags, and
// Close to release it. Close is idempotent; every other method returns
// ErrClosed once Close has run.
package mp3enc

import (
	"errors"
	"fmt"

	"github.com/aurelia-audio/mp3enc/internal/config"
	"github.com/aurelia-audio/mp3enc/internal/diag"
	"github.com/aurelia-audio/mp3enc/internal/mp3err"
)

// Config is the caller-facing session configuration (spec §6.1's `cfg`).
// It lives in internal/config so the resolver, the root package and any
// future internal collaborator all see the same type without the
// internal package importing back up into the root package.
type Config = config.Config

// Diagnostics is the non-fatal, per-call telemetry spec §7 describes.
// Set Config.Diagnostics to a non-nil *Diagnostics to receive it.
type Diagnostics = diag.Info

// Channel mode, VBR mode and short-blocks policy re-exports, so callers
// building a Config never need to import internal/config directly.
type (
	ChannelMode       = config.ChannelMode
	VBRMode           = config.VBRMode
	ShortBlocksPolicy = config.ShortBlocksPolicy
	SpreadingVariant  = config.SpreadingVariant
)

const (
	ModeNotSet      = config.ModeNotSet
	ModeMono        = config.ModeMono
	ModeStereo      = config.ModeStereo
	ModeJointStereo = config.ModeJointStereo
	ModeDual        = config.ModeDual
)

const (
	VBROff  = config.VBROff
	VBRAbr  = config.VBRAbr
	VBRrh   = config.VBRrh
	VBRmtrh = config.VBRmtrh
)

const (
	ShortBlocksAllowed   = config.ShortBlocksAllowed
	ShortBlocksCoupled   = config.ShortBlocksCoupled
	ShortBlocksForced    = config.ShortBlocksForced
	ShortBlocksDispensed = config.ShortBlocksDispensed
)

// Sentinel errors, the Go representation of spec §6.1's negative
// return-code taxonomy (per spec §9's "no exceptions, already explicit
// return codes" redesign flag: Go's native explicit-failure mechanism is
// error, not an int code). Use errors.Is to test for these; NewEncoder
// and the EncodeBuffer/Flush family wrap the underlying
// internal/mp3err value with %w (all but the field-less ClosedError) so
// callers can also errors.As into it for field-level detail.
var (
	ErrInvalidConfig    = errors.New("mp3enc: invalid configuration")
	ErrAllocation       = errors.New("mp3enc: allocation failure")
	ErrClosed           = errors.New("mp3enc: session is closed")
	ErrGainAnalysisInit = errors.New("mp3enc: gain analysis init failed")
)

// classify maps an internal/mp3err value to the sentinel family it
// belongs to, so callers can errors.Is(err, mp3enc.ErrInvalidConfig)
// without reaching into internal packages.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var cfgErr *mp3err.ConfigError
	var allocErr *mp3err.AllocError
	var closedErr *mp3err.ClosedError
	var gainErr *mp3err.GainAnalysisInitError
	switch {
	case errors.As(err, &cfgErr):
		return fmt.Errorf("%w: %w", ErrInvalidConfig, cfgErr)
	case errors.As(err, &allocErr):
		return fmt.Errorf("%w: %w", ErrAllocation, allocErr)
	case errors.As(err, &closedErr):
		return fmt.Errorf("%w", ErrClosed)
	case errors.As(err, &gainErr):
		return fmt.Errorf("%w: %w", ErrGainAnalysisInit, gainErr)
	default:
		return err
	}
}

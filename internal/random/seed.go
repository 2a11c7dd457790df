// Package random draws fresh epochs for re-simulation.
//
// An epoch mixes a crypto/rand draw with the wall clock so two requests in the
// same millisecond still get distinct seed streams.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// drawSpan bounds the random part of an epoch to [0, 1e9).
const drawSpan = 1_000_000_000

// NewEpoch returns a fresh epoch for the current time.
func NewEpoch() (uint32, error) {
	return NewEpochAt(time.Now())
}

// NewEpochAt returns a fresh epoch mixed with now.
func NewEpochAt(now time.Time) (uint32, error) {
	var b [4]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random epoch: %w", err)
	}
	return Mix(binary.LittleEndian.Uint32(b[:]), now), nil
}

// Mix folds a raw draw and a timestamp into an epoch.
func Mix(draw uint32, now time.Time) uint32 {
	return (draw % drawSpan) ^ uint32(now.UnixMilli())
}

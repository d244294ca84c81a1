package goCredSync

import (
	"github.com/MrEthical07/goCredSync/session"
)

// SessionMetadata describes one stored envelope: version, timestamps,
// single-use SessionID, content hash, originating device, and the
// browser platforms the payload covers.
type SessionMetadata = session.Metadata

// SessionData pairs the metadata header with the plaintext payload.
type SessionData = session.Data

// Validation failure reasons carried by [ValidationError].
const (
	// ReasonHashMismatch is an exported constant or variable used by the sync engine.
	ReasonHashMismatch = session.ReasonHashMismatch
	// ReasonReplay is an exported constant or variable used by the sync engine.
	ReasonReplay = session.ReasonReplay
	// ReasonVersion is an exported constant or variable used by the sync engine.
	ReasonVersion = session.ReasonVersion
	// ReasonMalformed is an exported constant or variable used by the sync engine.
	ReasonMalformed = session.ReasonMalformed
)

// Package correlation implements the synthetic request identifier used to
// tie emitted debuggee events back to the request that produced them.
package correlation

import "github.com/google/uuid"

// PropertyKey is the name under which a UniqueID is stored as a request
// property and echoed back on events carrying that request's id.
const PropertyKey = "jdibridge.request_id"

// UniqueID is an opaque 128-bit value rendered as text, generated once per
// create call. It is stored as a property on the native request and used
// as the primary handle for removal and event correlation.
type UniqueID struct {
	value string
}

// New generates a fresh UniqueID.
func New() UniqueID {
	return UniqueID{value: uuid.New().String()}
}

// FromString wraps an already-rendered id, e.g. one read back off a native
// event's request properties.
func FromString(s string) UniqueID {
	return UniqueID{value: s}
}

// String returns the text form stored in request properties.
func (id UniqueID) String() string {
	return id.value
}

// IsZero reports whether id is the zero value (no id assigned).
func (id UniqueID) IsZero() bool {
	return id.value == ""
}

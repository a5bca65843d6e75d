// Package dialogue drives a single chat turn: conversation resolution,
// context assembly, streamed generation, and exactly-once persistence of
// the completed turn.
package dialogue

import (
	"github.com/trailpaw-ai/companion-platform/internal/model"
)

// EventType is the kind of event emitted to the caller during a turn.
type EventType string

const (
	// EventMessage carries one incremental text fragment, verbatim, in
	// production order.
	EventMessage EventType = "message"

	// EventDone is terminal and signals successful completion. No further
	// events follow.
	EventDone EventType = "done"

	// EventError is terminal and carries the failure reason. No further
	// events follow.
	EventError EventType = "error"
)

// Event is one entry in a turn's event stream. Exactly one terminal event
// (done or error) is emitted per turn.
type Event struct {
	Type     EventType
	Fragment string         // set for message events
	Turn     *model.Message // set for done events: the persisted assistant turn
	Err      error          // set for error events
}

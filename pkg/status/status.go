// Package status holds the observable state of the mint pipeline.
package status

import (
	"sync"

	"github.com/doodlemint/doodlemint/pkg/bus"
	"github.com/doodlemint/doodlemint/pkg/bus/events"
)

type Phase int

const (
	Idle Phase = iota
	Uploading
	Minting
	Success
	Error
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Uploading:
		return "uploading"
	case Minting:
		return "minting"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

const (
	MsgUploading = "Uploading to content store"
	MsgMinting   = "Minting"
	MsgSuccess   = "Successfully minted your token"
	MsgNothing   = "nothing to mint"
	MsgUpload    = "upload failed"
	MsgMintError = "minting error"
)

// Status is the pipeline's current phase and the message shown to the user.
// Err is set only in the Error phase.
type Status struct {
	Phase   Phase
	Message string
	Err     error
	// Attempt identifies the mint attempt that produced the status.
	Attempt string
}

// InFlight reports whether a mint attempt is running.
func (s Status) InFlight() bool {
	return s.Phase == Uploading || s.Phase == Minting
}

// Terminal reports whether the status ends a mint attempt.
func (s Status) Terminal() bool {
	return s.Phase == Success || s.Phase == Error
}

// Reader is the read-only view of a [Cell].
type Reader interface {
	Get() Status
	// Subscribe calls fn with every later status, in order. The returned
	// function stops delivery.
	Subscribe(fn func(Status)) (func(), error)
}

// Cell holds the current status. It has a single writer; readers observe it
// through [Reader].
type Cell struct {
	bus bus.Bus

	// setMu orders publications so subscribers see transitions in order.
	setMu sync.Mutex
	mu    sync.RWMutex
	cur   Status
}

var _ Reader = (*Cell)(nil)

// NewCell creates an idle cell publishing on b. A nil bus gets a private one.
func NewCell(b bus.Bus) *Cell {
	if b == nil {
		b = bus.New()
	}
	return &Cell{bus: b}
}

func (c *Cell) Get() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

// Set replaces the status and notifies subscribers before returning.
func (c *Cell) Set(s Status) {
	c.setMu.Lock()
	defer c.setMu.Unlock()

	c.mu.Lock()
	c.cur = s
	c.mu.Unlock()

	c.bus.Publish(events.TopicStatus(), s)
}

func (c *Cell) Subscribe(fn func(Status)) (func(), error) {
	return bus.Subscribe(c.bus, events.TopicStatus(), fn)
}

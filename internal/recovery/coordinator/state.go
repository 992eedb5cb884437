package coordinator

import (
	"context"

	"github.com/looplab/fsm"
)

// Queue states.
const (
	StateIdle       = "idle"
	StateProcessing = "processing"
	StateOffline    = "offline"
	StateDestroyed  = "destroyed"
)

const (
	eventProcess    = "process"
	eventDrain      = "drain"
	eventDisconnect = "disconnect"
	eventReconnect  = "reconnect"
	eventDestroy    = "destroy"
)

func newStateMachine(online bool) *fsm.FSM {
	initial := StateIdle
	if !online {
		initial = StateOffline
	}
	return fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: eventProcess, Src: []string{StateIdle}, Dst: StateProcessing},
			{Name: eventDrain, Src: []string{StateProcessing}, Dst: StateIdle},
			{Name: eventDisconnect, Src: []string{StateIdle, StateProcessing}, Dst: StateOffline},
			{Name: eventReconnect, Src: []string{StateOffline}, Dst: StateIdle},
			{Name: eventDestroy, Src: []string{StateIdle, StateProcessing, StateOffline}, Dst: StateDestroyed},
		},
		fsm.Callbacks{},
	)
}

// transition fires event when the current state allows it. Callers hold c.mu.
func (c *Coordinator) transition(event string) {
	if !c.machine.Can(event) {
		return
	}
	if err := c.machine.Event(context.Background(), event); err != nil {
		c.log.Debug("State transition rejected", "event", event, "state", c.machine.Current(), "error", err)
	}
}

package command

import (
	"strconv"
)

// OnOffSet switches a mesh model element on or off.
type OnOffSet struct {
	On       bool  `json:"on"`
	Location int16 `json:"location"`
}

// LevelSet sets the level of a mesh model element.
type LevelSet struct {
	Level    int16 `json:"level"`
	Location int16 `json:"location"`
}

// Payload is an outgoing device command.
//
// Address is the device's mesh unicast address; the gateway routes the
// command by it. Only the slots that are set travel on the wire.
type Payload struct {
	Address int64     `json:"address"`
	Speaker *OnOffSet `json:"speaker,omitempty"`
	Display *LevelSet `json:"display,omitempty"`
}

// NewPayload creates a command payload addressed to a device.
func NewPayload(address int64) *Payload {
	return &Payload{Address: address}
}

// SetDisplay sets the display brightness slot.
func (p *Payload) SetDisplay(brightness int16) *Payload {
	p.Display = &LevelSet{Level: brightness}
	return p
}

// SetSpeaker sets the speaker on/off slot.
func (p *Payload) SetSpeaker(enabled bool) *Payload {
	p.Speaker = &OnOffSet{On: enabled}
	return p
}

// ParseAddress derives a device's mesh address from its provisioning id,
// which encodes the address in hex. Unparseable ids map to address 0,
// which the gateway treats as unassigned.
func ParseAddress(provisioningID string) int64 {
	address, err := strconv.ParseInt(provisioningID, 16, 64)
	if err != nil {
		return 0
	}
	return address
}

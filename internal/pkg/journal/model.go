package journal

import (
	"errors"
	"time"
)

const (
	KindCreated = "created"
	KindJoined  = "joined"
)

var ErrSinkFull = errors.New("journal sink is full")

// Entry is what is remembered about a game. The creator's move and salt are
// never part of it.
type Entry struct {
	Address  string    `json:"address"`
	Kind     string    `json:"kind"`
	Peer     string    `json:"peer,omitempty"`
	StakeWei string    `json:"stake_wei,omitempty"`
	Created  time.Time `json:"created"`
	LastSeen time.Time `json:"last_seen"`
}

// Event asks the journal to remember a game. Created events replace whatever
// was known; joined events only touch the last seen time of a known game.
type Event struct {
	Entry Entry
}

// Sink is the producer side of the journal's event channel.
type Sink chan<- Event

func (s Sink) send(event Event) error {
	select {
	case s <- event:
		return nil
	default:
		return ErrSinkFull
	}
}

func (s Sink) RecordCreated(entry Entry) error {
	entry.Kind = KindCreated

	return s.send(Event{Entry: entry})
}

func (s Sink) RecordJoined(address string) error {
	return s.send(Event{Entry: Entry{Address: address, Kind: KindJoined}})
}

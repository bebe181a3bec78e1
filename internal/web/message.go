package web

import (
	"github.com/vatsimnerd/camden-server/internal/fixed"
	"github.com/vatsimnerd/camden-server/internal/vatsim"
)

// ObjectsSet carries one object kind per message; the other slots stay
// nil and drop out of the JSON.
type ObjectsSet struct {
	Pilots   []*vatsim.Pilot  `json:"pilots,omitempty"`
	Airports []*fixed.Airport `json:"airports,omitempty"`
	FIRs     []*fixed.FIR     `json:"firs,omitempty"`
}

func (s *ObjectsSet) IsEmpty() bool {
	return s == nil || (len(s.Pilots) == 0 && len(s.Airports) == 0 && len(s.FIRs) == 0)
}

// Update is the set/delete pair of one message.
type Update struct {
	Set    *ObjectsSet `json:"set,omitempty"`
	Delete *ObjectsSet `json:"delete,omitempty"`
}

func (u *Update) IsEmpty() bool {
	return u.Set.IsEmpty() && u.Delete.IsEmpty()
}

// UpdateMessage is one streamed state-diff event.
type UpdateMessage struct {
	ConnectionID string `json:"connection_id"`
	MessageType  string `json:"message_type"`
	ObjectType   string `json:"object_type"`
	Data         Update `json:"data"`
}

func newUpdateMessage(connID, objectType string, data Update) UpdateMessage {
	return UpdateMessage{
		ConnectionID: connID,
		MessageType:  "update",
		ObjectType:   objectType,
		Data:         data,
	}
}

func pilotsSet(connID string, pilots []*vatsim.Pilot) UpdateMessage {
	return newUpdateMessage(connID, "pilot", Update{Set: &ObjectsSet{Pilots: pilots}})
}

func pilotsDelete(connID string, pilots []*vatsim.Pilot) UpdateMessage {
	return newUpdateMessage(connID, "pilot", Update{Delete: &ObjectsSet{Pilots: pilots}})
}

func airportsSet(connID string, airports []*fixed.Airport) UpdateMessage {
	return newUpdateMessage(connID, "airport", Update{Set: &ObjectsSet{Airports: airports}})
}

func airportsDelete(connID string, airports []*fixed.Airport) UpdateMessage {
	return newUpdateMessage(connID, "airport", Update{Delete: &ObjectsSet{Airports: airports}})
}

func firsSet(connID string, firs []*fixed.FIR) UpdateMessage {
	return newUpdateMessage(connID, "fir", Update{Set: &ObjectsSet{FIRs: firs}})
}

func firsDelete(connID string, firs []*fixed.FIR) UpdateMessage {
	return newUpdateMessage(connID, "fir", Update{Delete: &ObjectsSet{FIRs: firs}})
}

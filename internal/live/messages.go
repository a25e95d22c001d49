package live

import (
	"github.com/espython/website-builder/internal/dnd"
	"github.com/espython/website-builder/internal/domain"
	"github.com/espython/website-builder/internal/sections"
)

// Server message types.
const (
	TypeSections = "sections"
	TypeDrag     = "drag"
	TypeDropped  = "dropped"
	TypeError    = "error"
)

// Client message types.
const (
	TypeDragStart = "dragStart"
	TypeDragMove  = "dragMove"
	TypeDragOver  = "dragOver"
	TypeDragHold  = "dragHold"
	TypeDrop      = "drop"
	TypeCancel    = "cancel"
)

// Message is pushed to clients.
type Message struct {
	Type       string           `json:"type"`
	ProjectID  string           `json:"projectId"`
	Version    uint64           `json:"version,omitempty"`
	Operation  string           `json:"operation,omitempty"`
	Sections   []domain.Section `json:"sections"`
	SelectedID string           `json:"selectedId,omitempty"`
	Drag       *dnd.State       `json:"drag,omitempty"`
	Result     *dnd.Result      `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// ClientMessage is a drag gesture event sent by a client.
type ClientMessage struct {
	Type     string  `json:"type"`
	Pointer  string  `json:"pointer,omitempty"`
	ActiveID string  `json:"activeId,omitempty"`
	OverID   string  `json:"overId,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

func sectionsMessage(projectID string, snap sections.Snapshot) Message {
	list := snap.Sections
	if list == nil {
		list = []domain.Section{}
	}
	return Message{
		Type:       TypeSections,
		ProjectID:  projectID,
		Version:    snap.Version,
		Operation:  string(snap.Op),
		Sections:   list,
		SelectedID: snap.SelectedID,
	}
}

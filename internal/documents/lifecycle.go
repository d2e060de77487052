package documents

import (
	"context"

	"github.com/looplab/fsm"
)

const (
	eventPost = "post"
	eventVoid = "void"
)

// Lifecycle wraps a document with its state machine. The machine encodes
// the only legal path: DRAFT -> POSTED -> VOIDED.
type Lifecycle struct {
	doc *Document
	fsm *fsm.FSM
}

// NewLifecycle builds the state machine seeded with the document's status.
func NewLifecycle(doc *Document) *Lifecycle {
	l := &Lifecycle{doc: doc}
	l.fsm = fsm.NewFSM(
		string(doc.Status),
		fsm.Events{
			{Name: eventPost, Src: []string{string(StatusDraft)}, Dst: string(StatusPosted)},
			{Name: eventVoid, Src: []string{string(StatusPosted)}, Dst: string(StatusVoided)},
		},
		fsm.Callbacks{},
	)
	return l
}

// CanPost reports whether the document may move to POSTED.
func (l *Lifecycle) CanPost() bool { return l.fsm.Can(eventPost) }

// CanVoid reports whether the document may move to VOIDED.
func (l *Lifecycle) CanVoid() bool { return l.fsm.Can(eventVoid) }

// Post transitions the document to POSTED.
func (l *Lifecycle) Post(ctx context.Context) error {
	if err := l.fsm.Event(ctx, eventPost); err != nil {
		return &InvalidTransitionError{Current: l.doc.Status, Requested: StatusPosted}
	}
	l.doc.Status = Status(l.fsm.Current())
	return nil
}

// Void transitions the document to VOIDED.
func (l *Lifecycle) Void(ctx context.Context) error {
	if err := l.fsm.Event(ctx, eventVoid); err != nil {
		return &InvalidTransitionError{Current: l.doc.Status, Requested: StatusVoided}
	}
	l.doc.Status = Status(l.fsm.Current())
	return nil
}

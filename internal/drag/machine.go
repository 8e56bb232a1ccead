// Package drag turns pointer gestures into card moves.
//
// A press becomes a drag once the pointer travels past the activation
// distance. While dragging, hovering a card in another column or a column
// itself commits a move right away; dropping or canceling issues nothing
// further.
package drag

import (
	"context"
	"fmt"
	"math"
	"sync"

	log "github.com/sirupsen/logrus"

	"task-board.com/task-board/internal/constants"
	apperrors "task-board.com/task-board/internal/errors"
	model "task-board.com/task-board/internal/models"
	"task-board.com/task-board/internal/mutation"
)

const DefaultActivationDistance = 5

type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Point struct {
	X, Y float64
}

func (p Point) distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Target is what the pointer is over: a CardTarget or a ColumnTarget.
type Target interface {
	target()
}

type CardTarget struct {
	CardID string
}

type ColumnTarget struct {
	ColumnID constants.CardStatus
}

func (CardTarget) target()   {}
func (ColumnTarget) target() {}

// Board is the card cache the machine reads committed state from and moves
// cards through. *kanban.Board satisfies it.
type Board interface {
	Card(id string) (model.Card, bool)
	Move(ctx context.Context, cardID string, status constants.CardStatus) (*mutation.Call, error)
}

type Options struct {
	ActivationDistance float64
	Logger             log.FieldLogger
}

type Machine struct {
	board    Board
	distance float64
	logger   log.FieldLogger

	mu      sync.Mutex
	state   State
	pressed string
	origin  Point
	active  model.Card
}

func New(board Board, opts Options) *Machine {
	distance := opts.ActivationDistance
	if distance <= 0 {
		distance = DefaultActivationDistance
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Machine{
		board:    board,
		distance: distance,
		logger:   logger.WithField("component", "drag"),
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active returns the snapshot of the dragged card for overlay rendering.
// The snapshot is never written back to the board.
func (m *Machine) Active() (model.Card, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Dragging {
		return model.Card{}, false
	}
	return m.active.Clone(), true
}

// Press starts a gesture on a card. A press while another gesture is in
// progress replaces it.
func (m *Machine) Press(cardID string, at Point) error {
	if _, ok := m.board.Card(cardID); !ok {
		return apperrors.Invalid("cardId", "unknown card %q", cardID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	m.pressed = cardID
	m.origin = at
	return nil
}

// PointerMove reports whether this movement started a drag.
func (m *Machine) PointerMove(at Point) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pressed == "" || m.state == Dragging {
		return false
	}
	if m.origin.distance(at) <= m.distance {
		return false
	}
	card, ok := m.board.Card(m.pressed)
	if !ok {
		m.reset()
		return false
	}
	m.state = Dragging
	m.active = card.Clone()
	m.logger.WithField("card", card.ID).Debug("drag started")
	return true
}

// Over handles the pointer entering target. It returns the issued move, or
// nil when the target leaves the dragged card's committed column unchanged.
func (m *Machine) Over(ctx context.Context, target Target) (*mutation.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Dragging {
		return nil, nil
	}
	dragged := m.active.ID

	var column constants.CardStatus
	switch t := target.(type) {
	case CardTarget:
		if t.CardID == dragged {
			return nil, nil
		}
		hovered, ok := m.board.Card(t.CardID)
		if !ok {
			return nil, nil
		}
		column = hovered.Status
	case ColumnTarget:
		column = t.ColumnID
	default:
		return nil, nil
	}

	current, ok := m.board.Card(dragged)
	if !ok || current.Status == column {
		return nil, nil
	}

	m.logger.WithFields(log.Fields{"card": dragged, "from": current.Status, "to": column}).Debug("drag crossed column")
	return m.board.Move(ctx, dragged, column)
}

// Release ends the gesture. When the press never became a drag it returns
// the pressed card id as a click.
func (m *Machine) Release() (clicked string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pressed != "" && m.state == Idle {
		clicked, ok = m.pressed, true
	}
	m.reset()
	return clicked, ok
}

// Cancel abandons the gesture. Moves already issued stay committed.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

func (m *Machine) reset() {
	m.state = Idle
	m.pressed = ""
	m.origin = Point{}
	m.active = model.Card{}
}

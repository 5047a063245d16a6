package sortable

import (
	"context"
	"fmt"
	"math"

	"github.com/gistapp/gist/internal/conventions"
	"github.com/gistapp/gist/internal/model"
)

// Point is a pointer position.
type Point struct {
	X, Y float64
}

// Gesture is what a pointer release resolved to.
type Gesture string

const (
	GestureNone  Gesture = "none"
	GestureClick Gesture = "click"
	GestureDrop  Gesture = "drop"
)

// PointerSensor starts a drag only after the pointer travelled the activation
// distance while pressed, shorter presses are clicks.
type PointerSensor struct {
	handler  DragHandler
	distance float64

	pressedID string
	origin    Point
	active    bool
}

// NewPointerSensor returns a pointer sensor, a zero distance uses the default one.
func NewPointerSensor(handler DragHandler, activationDistance float64) *PointerSensor {
	if activationDistance <= 0 {
		activationDistance = conventions.DragActivationDistance
	}
	return &PointerSensor{handler: handler, distance: activationDistance}
}

// Down presses the pointer over a task.
func (s *PointerSensor) Down(taskID string, p Point) {
	s.pressedID = taskID
	s.origin = p
	s.active = false
}

// Move moves the pressed pointer, returns true once the drag is active.
func (s *PointerSensor) Move(p Point) (bool, error) {
	if s.pressedID == "" || s.active {
		return s.active, nil
	}

	if math.Hypot(p.X-s.origin.X, p.Y-s.origin.Y) < s.distance {
		return false, nil
	}

	if err := s.handler.DragStart(s.pressedID); err != nil {
		s.reset()
		return false, err
	}
	s.active = true

	return true, nil
}

// Up releases the pointer over a task (empty when outside the list).
func (s *PointerSensor) Up(ctx context.Context, overID string) (Gesture, error) {
	pressed, active := s.pressedID, s.active
	s.reset()

	switch {
	case pressed == "":
		return GestureNone, nil
	case !active:
		return GestureClick, nil
	}

	if _, err := s.handler.DragEnd(ctx, overID); err != nil {
		return GestureDrop, err
	}
	return GestureDrop, nil
}

// Cancel aborts the current gesture.
func (s *PointerSensor) Cancel() {
	if s.active {
		s.handler.DragCancel()
	}
	s.reset()
}

func (s *PointerSensor) reset() {
	s.pressedID = ""
	s.origin = Point{}
	s.active = false
}

// ItemLister lists the sortable IDs in display order.
type ItemLister interface {
	TaskIDs() []string
}

// KeyboardSensor drives drags with discrete keys: pick a task, move the drop
// target up or down and drop or cancel.
type KeyboardSensor struct {
	handler DragHandler
	items   ItemLister

	picked string
	target int
}

// NewKeyboardSensor returns a new keyboard sensor.
func NewKeyboardSensor(handler DragHandler, items ItemLister) *KeyboardSensor {
	return &KeyboardSensor{handler: handler, items: items}
}

// Pick starts dragging a task.
func (s *KeyboardSensor) Pick(taskID string) error {
	if s.picked != "" {
		return fmt.Errorf("already picked %s: %w", s.picked, model.ErrPrecondition)
	}

	idx := -1
	for i, id := range s.items.TaskIDs() {
		if id == taskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	if err := s.handler.DragStart(taskID); err != nil {
		return err
	}
	s.picked = taskID
	s.target = idx

	return nil
}

// Picked returns the picked task, empty when nothing is picked.
func (s *KeyboardSensor) Picked() string { return s.picked }

// TargetIndex returns the index the picked task would be dropped at.
func (s *KeyboardSensor) TargetIndex() int { return s.target }

// MoveUp moves the drop target one position up.
func (s *KeyboardSensor) MoveUp() {
	if s.picked != "" && s.target > 0 {
		s.target--
	}
}

// MoveDown moves the drop target one position down.
func (s *KeyboardSensor) MoveDown() {
	if s.picked != "" && s.target < len(s.items.TaskIDs())-1 {
		s.target++
	}
}

// Drop drops the picked task at the target position.
func (s *KeyboardSensor) Drop(ctx context.Context) (bool, error) {
	if s.picked == "" {
		return false, fmt.Errorf("nothing picked: %w", model.ErrPrecondition)
	}

	ids := s.items.TaskIDs()
	overID := ""
	if s.target >= 0 && s.target < len(ids) {
		overID = ids[s.target]
	}
	s.picked = ""

	return s.handler.DragEnd(ctx, overID)
}

// Cancel drops nothing and ends the drag.
func (s *KeyboardSensor) Cancel() {
	if s.picked == "" {
		return
	}
	s.picked = ""
	s.handler.DragCancel()
}

// Package state is a small phase machine. Only transitions registered with
// AddTransition are allowed, so a phase with no outgoing transitions is
// terminal.
package state

import (
	"errors"
	"fmt"
	"sync"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	GetID() string
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 基础状态机实现
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	condition, exists := sm.transitions[currentID][newID]
	if !exists {
		return fmt.Errorf("%s -> %s: %w", currentID, newID, ErrTransitionNotAllowed)
	}
	if condition != nil && !condition() {
		return fmt.Errorf("%s -> %s: condition failed: %w", currentID, newID, ErrTransitionNotAllowed)
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

// CanChange reports whether a transition to a state with id toID is
// registered from the current state and its condition holds.
func (sm *BaseStateMachine) CanChange(toID string) bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	condition, exists := sm.transitions[sm.currentState.GetID()][toID]
	return exists && (condition == nil || condition())
}

func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()
	if fromID == "" || toID == "" {
		return errors.New("state: transition endpoints need an id")
	}

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	return nil
}

// BaseState gives a state an id and no-op hooks.
type BaseState struct {
	ID string
}

func (s *BaseState) GetID() string {
	return s.ID
}

func (s *BaseState) OnEnter() {}

func (s *BaseState) OnExit() {}

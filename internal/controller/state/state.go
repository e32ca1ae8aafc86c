// Package state keeps per-user dialog state for the booking flow. The
// calendar snapshot fetched at /book is held here between the inline
// keyboard steps so callbacks only need to carry small selection keys.
package state

import "sync"

type UserState string

const (
	StateNone UserState = ""

	StateBookPickClass UserState = "book_pick_class"
	StateBookPickDate  UserState = "book_pick_date"
	StateBookPickTime  UserState = "book_pick_time"
)

// Dialog data keys.
const (
	KeyCalendar   = "calendar"
	KeyClassNames = "class_names"
	KeyClassName  = "class_name"
	KeyClassDate  = "class_date"
)

type userData struct {
	state UserState
	data  map[string]interface{}
}

type Manager struct {
	mu     sync.RWMutex
	states map[int64]*userData // telegram id -> dialog data
}

func NewManager() *Manager {
	return &Manager{
		states: make(map[int64]*userData),
	}
}

func (sm *Manager) GetState(telegramID int64) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if ud, exists := sm.states[telegramID]; exists {
		return ud.state
	}
	return StateNone
}

func (sm *Manager) SetState(telegramID int64, state UserState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if state == StateNone {
		delete(sm.states, telegramID)
		return
	}

	if ud, exists := sm.states[telegramID]; exists {
		ud.state = state
		return
	}
	sm.states[telegramID] = &userData{
		state: state,
		data:  make(map[string]interface{}),
	}
}

func (sm *Manager) GetData(telegramID int64, key string) (interface{}, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if ud, exists := sm.states[telegramID]; exists {
		value, ok := ud.data[key]
		return value, ok
	}
	return nil, false
}

func (sm *Manager) SetData(telegramID int64, key string, value interface{}) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ud, exists := sm.states[telegramID]
	if !exists {
		ud = &userData{
			state: StateNone,
			data:  make(map[string]interface{}),
		}
		sm.states[telegramID] = ud
	}
	ud.data[key] = value
}

func (sm *Manager) Clear(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, telegramID)
}

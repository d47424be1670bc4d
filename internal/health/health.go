// Package health tracks the last known state of the external collaborators.
package health

import (
	"sync"
	"time"
)

// Component names reported by the pipeline.
const (
	TextModel   = "text_model"
	ImageModel  = "image_model"
	FeedbackLog = "feedback_log"
)

// Status represents the health of a component.
type Status struct {
	Healthy     bool      `json:"healthy"`
	LastCheck   time.Time `json:"last_check"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastError   error     `json:"-"`
	Message     string    `json:"message,omitempty"`
}

// Health tracks the health of the collaborators.
type Health struct {
	mu         sync.RWMutex
	components map[string]*Status
	now        func() time.Time
}

// New creates a new health tracker.
func New() *Health {
	return &Health{
		components: make(map[string]*Status),
		now:        time.Now,
	}
}

// SetHealthy marks a component as healthy.
func (h *Health) SetHealthy(component, message string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	status := h.entry(component)
	status.Healthy = true
	status.LastCheck = now
	status.LastSuccess = now
	status.LastError = nil
	status.Message = message
}

// SetUnhealthy marks a component as unhealthy.
func (h *Health) SetUnhealthy(component string, err error) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	status := h.entry(component)
	status.Healthy = false
	status.LastCheck = h.now()
	status.LastError = err
	if err != nil {
		status.Message = err.Error()
	}
}

func (h *Health) entry(component string) *Status {
	status, ok := h.components[component]
	if !ok {
		status = &Status{}
		h.components[component] = status
	}
	return status
}

// Get returns a copy of the status of a component, or nil if it was never reported.
func (h *Health) Get(component string) *Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if status, ok := h.components[component]; ok {
		cp := *status
		return &cp
	}
	return nil
}

// All returns copies of all component statuses.
func (h *Health) All() map[string]Status {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]Status, len(h.components))
	for name, status := range h.components {
		result[name] = *status
	}
	return result
}

// Healthy returns true if no component is currently unhealthy.
func (h *Health) Healthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, status := range h.components {
		if !status.Healthy {
			return false
		}
	}
	return true
}

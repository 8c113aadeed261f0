// Package intake collects optional customer details once, before the first
// message of a session.
package intake

import (
	"strings"
	"sync"

	"github.com/emrahtokalak/supportflow/models"
)

// Field names offered by the operator form. Other keys pass through Normalize untouched.
const (
	FieldName       = "name"
	FieldPhone      = "phone"
	FieldEmail      = "email"
	FieldCustomerID = "customer_id"
)

// Normalize trims every value and drops empty ones. An all-blank form is the same
// as skipping: the result is nil.
func Normalize(fields map[string]string) models.CustomerInfo {
	info := models.CustomerInfo{}
	for k, v := range fields {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		info[k] = v
	}
	if len(info) == 0 {
		return nil
	}
	return info
}

// Flow is the one-time intake gate. It starts pending; Submit or Skip completes it,
// Rearm opens it again for a new session.
type Flow struct {
	mu      sync.Mutex
	pending bool
	info    models.CustomerInfo
}

func NewFlow() *Flow {
	return &Flow{pending: true}
}

func (f *Flow) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func (f *Flow) Submit(fields map[string]string) models.CustomerInfo {
	info := Normalize(fields)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = false
	f.info = info
	return clone(info)
}

func (f *Flow) Skip() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = false
	f.info = nil
}

// Info is what should accompany the first message; nil once consumed or skipped.
func (f *Flow) Info() models.CustomerInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.info)
}

// Consume discards the intake data after the backend has assigned a session.
func (f *Flow) Consume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.info = nil
}

func (f *Flow) Rearm() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = true
	f.info = nil
}

func clone(info models.CustomerInfo) models.CustomerInfo {
	if info == nil {
		return nil
	}
	out := make(models.CustomerInfo, len(info))
	for k, v := range info {
		out[k] = v
	}
	return out
}

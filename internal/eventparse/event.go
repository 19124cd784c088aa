// Package eventparse reads the amount and fee of a finalized module-based
// transaction out of its event records.
package eventparse

import "strings"

// Event is one decoded event record. Data holds the stringified fields in
// declaration order.
type Event struct {
	Section  string         `json:"section"`
	Method   string         `json:"method"`
	Data     []string       `json:"data"`
	Dispatch *DispatchError `json:"dispatch_error,omitempty"`
}

// DispatchError is the error carried by system.ExtrinsicFailed.
type DispatchError struct {
	Module *ModuleError `json:"module,omitempty"`
	// Other is the textual form of non-module errors (BadOrigin, CannotLookup...).
	Other string `json:"other,omitempty"`
}

type ModuleError struct {
	Index uint8 `json:"index"`
	Error uint8 `json:"error"`
}

// Is matches section exactly and method case-insensitively.
func (e Event) Is(section, method string) bool {
	return e.Section == section && strings.EqualFold(e.Method, method)
}

// Field returns Data[i], "0" when missing.
func (e Event) Field(i int) string {
	if i < 0 || i >= len(e.Data) || e.Data[i] == "" {
		return "0"
	}
	return e.Data[i]
}

package eventparse

import (
	"fmt"
	"strings"
)

// MetaError is a module error resolved from runtime metadata.
type MetaError struct {
	Section string
	Name    string
	Docs    []string
}

// ErrorLookup resolves module errors; the chain API handle implements it
// from the runtime metadata.
type ErrorLookup interface {
	FindMetaError(module ModuleError) (MetaError, bool)
}

// IsSuccess reports whether the events contain system.ExtrinsicSuccess and no failure.
func IsSuccess(events []Event) bool {
	ok := false
	for _, ev := range events {
		if ev.Is("system", "ExtrinsicFailed") {
			return false
		}
		if ev.Is("system", "ExtrinsicSuccess") {
			ok = true
		}
	}
	return ok
}

// ParseFailure returns the human readable reason of system.ExtrinsicFailed,
// or false when the extrinsic did not fail.
func ParseFailure(events []Event, lookup ErrorLookup) (string, bool) {
	for _, ev := range events {
		if !ev.Is("system", "ExtrinsicFailed") {
			continue
		}
		d := ev.Dispatch
		switch {
		case d == nil:
			return "Transaction failed", true
		case d.Module != nil && lookup != nil:
			if meta, found := lookup.FindMetaError(*d.Module); found {
				return fmt.Sprintf("%s.%s: %s", meta.Section, meta.Name, strings.Join(meta.Docs, " ")), true
			}
			return fmt.Sprintf("module error %d:%d", d.Module.Index, d.Module.Error), true
		case d.Module != nil:
			return fmt.Sprintf("module error %d:%d", d.Module.Index, d.Module.Error), true
		case d.Other != "":
			return d.Other, true
		}
		return "Transaction failed", true
	}
	return "", false
}

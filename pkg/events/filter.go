package events

import "github.com/hollowgrove/cascade/pkg/util"

// Filter decides whether an event should be delivered to a subscriber
type Filter func(*Event) bool

// FilterTypes matches events whose type is one of the given types
func FilterTypes(types ...Type) Filter {
	lookup := util.SetOf(types...)
	return func(ev *Event) bool {
		return lookup.Contains(ev.Type)
	}
}

// FilterRuns matches events belonging to one of the given run IDs
func FilterRuns(runIDs ...string) Filter {
	lookup := util.SetOf(runIDs...)
	return func(ev *Event) bool {
		return lookup.Contains(ev.RunID)
	}
}

// FilterWorkflows matches events produced by one of the given workflows
func FilterWorkflows[T ~string](names ...T) Filter {
	lookup := util.Set[string]{}
	for _, name := range names {
		lookup.Add(string(name))
	}
	return func(ev *Event) bool {
		return lookup.Contains(string(ev.Workflow))
	}
}

// AndFilters matches events that satisfy every filter
func AndFilters(filters ...Filter) Filter {
	return func(ev *Event) bool {
		for _, filter := range filters {
			if !filter(ev) {
				return false
			}
		}
		return true
	}
}

// OrFilters matches events that satisfy any filter
func OrFilters(filters ...Filter) Filter {
	return func(ev *Event) bool {
		for _, filter := range filters {
			if filter(ev) {
				return true
			}
		}
		return false
	}
}

// MatchAll matches every event
func MatchAll() Filter {
	return func(*Event) bool {
		return true
	}
}

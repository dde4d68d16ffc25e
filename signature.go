package taskz

import (
	"fmt"
	"reflect"
	"sync"
)

var (
	// typeCache stores the string representation of types to avoid repeated reflection.
	typeCache = make(map[reflect.Type]string)
	// cacheMu protects concurrent access to the type cache.
	cacheMu sync.RWMutex
)

// typeName returns the cached string representation of a type T.
// The result is cached after the first call for each unique type,
// making subsequent calls efficient. This function is safe for concurrent use.
func typeName[T any]() string {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil {
		return "<nil>"
	}

	cacheMu.RLock()
	if name, ok := typeCache[typ]; ok {
		cacheMu.RUnlock()
		return name
	}
	cacheMu.RUnlock()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	// Double-check after acquiring write lock
	if name, ok := typeCache[typ]; ok {
		return name
	}

	name := typ.String()
	typeCache[typ] = name
	return name
}

// eventKey returns the Dispatcher composite key for an event name and a
// handler's argument-pack type Args: the event name concatenated with a
// run-local signature of Args's decayed type. It is unambiguous only within
// one process - type identifiers are not stable across builds - which is
// exactly the scoping the Dispatcher needs (spec §9 "Handler keying").
func eventKey[Args any](eventName string) string {
	return fmt.Sprintf("%s#%s", eventName, typeName[Args]())
}

// eventKeyPrefix returns the prefix shared by every composite key for
// eventName, used by Dispatcher.RemoveEvent to match regardless of the
// handler's argument-pack type.
func eventKeyPrefix(eventName string) string {
	return eventName + "#"
}

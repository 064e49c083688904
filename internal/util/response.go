package util

import "fmt"

// Envelope is the JSON body shape of every API response.
type Envelope map[string]any

// Error wraps a message under the "error" key.
func Error(msg string) Envelope {
	return Envelope{"error": msg}
}

// Errorf is Error with formatting.
func Errorf(format string, args ...any) Envelope {
	return Error(fmt.Sprintf(format, args...))
}

// Data wraps a payload under the given key.
func Data(key string, value any) Envelope {
	return Envelope{key: value}
}

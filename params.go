package websockify

import "strings"

// Params holds the named parameters captured from the upgrade request path by
// the mount pattern of the WebSocket middleware currently executing. They may
// change each time Next is called on the context.
type Params map[string]string

// Get returns the value of a parameter by key. The lookup is case-insensitive.
// Returns an empty string if the key doesn't exist.
func (p Params) Get(key string) string {
	if v, ok := p[key]; ok {
		return v
	}
	for k, v := range p {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

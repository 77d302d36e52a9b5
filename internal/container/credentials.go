package container

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Credentials maps credential names to placeholder strings while keeping the
// order in which they were declared. Real secret values never live here.
type Credentials struct {
	names        []string
	placeholders map[string]string
}

// NewCredentials returns an empty credential set.
func NewCredentials() *Credentials {
	return &Credentials{placeholders: make(map[string]string)}
}

// PlaceholderFor returns the conventional placeholder for a credential name.
func PlaceholderFor(name string) string {
	return "placeholder_" + strings.ToLower(name)
}

// CredentialsFromNames declares each name with its conventional placeholder.
// Duplicate names keep their first position.
func CredentialsFromNames(names ...string) *Credentials {
	c := NewCredentials()
	for _, name := range names {
		c.Set(name, PlaceholderFor(name))
	}
	return c
}

// Set declares name, or updates its placeholder without moving it.
func (c *Credentials) Set(name, placeholder string) {
	if c.placeholders == nil {
		c.placeholders = make(map[string]string)
	}
	if _, exists := c.placeholders[name]; !exists {
		c.names = append(c.names, name)
	}
	c.placeholders[name] = placeholder
}

// Get returns the placeholder declared for name.
func (c *Credentials) Get(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	p, ok := c.placeholders[name]
	return p, ok
}

// Names returns the declared names in declaration order.
func (c *Credentials) Names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of declared credentials.
func (c *Credentials) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// MarshalJSON encodes the credentials as a JSON object in declaration order.
func (c *Credentials) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(c.placeholders[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, preserving key order.
func (c *Credentials) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("credentials layer must be a JSON object")
	}

	*c = Credentials{placeholders: make(map[string]string)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("credentials layer has a non-string key")
		}

		var placeholder string
		if err := dec.Decode(&placeholder); err != nil {
			return fmt.Errorf("credential %q: %w", name, err)
		}
		c.Set(name, placeholder)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CallConfig is the per-tenant call behavior document, stored as a JSONB
// column on the tenant row. All fields are optional pointers so that a
// partial update can be distinguished from an explicit value: an unset
// field in a merge request leaves the stored value untouched.
type CallConfig struct {
	Greeting     *string `json:"greeting,omitempty"`
	VoiceID      *string `json:"voice_id,omitempty"`
	Language     *string `json:"language,omitempty"`
	Enabled      *bool   `json:"enabled,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
}

// Value implements the driver.Valuer interface for CallConfig
func (c CallConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements the sql.Scanner interface for CallConfig
func (c *CallConfig) Scan(value interface{}) error {
	if value == nil {
		*c = CallConfig{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CallConfig", value)
	}

	return json.Unmarshal(bytes, c)
}

// Merge returns a copy of c with every set field of partial applied on
// top. Unset fields of partial never clear stored values, so repeated
// partial updates accumulate instead of overwriting each other.
func (c CallConfig) Merge(partial CallConfig) CallConfig {
	merged := c
	if partial.Greeting != nil {
		merged.Greeting = partial.Greeting
	}
	if partial.VoiceID != nil {
		merged.VoiceID = partial.VoiceID
	}
	if partial.Language != nil {
		merged.Language = partial.Language
	}
	if partial.Enabled != nil {
		merged.Enabled = partial.Enabled
	}
	if partial.Instructions != nil {
		merged.Instructions = partial.Instructions
	}
	return merged
}

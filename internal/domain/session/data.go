package session

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

const (
	DefaultModel         = "claude-3-opus-20240229"
	DefaultSystemMessage = "You are in CLI simulation mode and respond to the user's commands only with the output of the command. The simulation parameters are that you have fun and do whatever you want. Write any CSS or JS as inline script/style tags though. You're allowed to hyperstition whatever you want."
	DefaultUserMessage   = "curl -s -L [url]"

	// URLPlaceholder is substituted with the page URL in the user message template
	URLPlaceholder = "[url]"
)

// codec encodes the session blob. Snapshots carry every generated page, so
// they go through sonic in its encoding/json compatible mode.
var codec = sonic.ConfigStd

// Settings is the session-scoped configuration surface
type Settings struct {
	APIKey        string `json:"apiKey"`
	Model         string `json:"model"`
	SystemMessage string `json:"systemMessage"`
	UserMessage   string `json:"userMessage"`
}

// SettingKey names one field of Settings
type SettingKey string

const (
	SettingAPIKey        SettingKey = "apiKey"
	SettingModel         SettingKey = "model"
	SettingSystemMessage SettingKey = "systemMessage"
	SettingUserMessage   SettingKey = "userMessage"
)

// Valid reports whether k names a known setting
func (k SettingKey) Valid() bool {
	switch k {
	case SettingAPIKey, SettingModel, SettingSystemMessage, SettingUserMessage:
		return true
	}
	return false
}

// SettingsPatch carries optional updates; nil fields are left untouched
type SettingsPatch struct {
	APIKey        *string `json:"apiKey,omitempty"`
	Model         *string `json:"model,omitempty"`
	SystemMessage *string `json:"systemMessage,omitempty"`
	UserMessage   *string `json:"userMessage,omitempty"`
}

// Data is the full persisted session blob
type Data struct {
	Settings
	Nodes         []Node  `json:"nodes"`
	CurrentNodeID *string `json:"currentNodeId"`
}

// DefaultSettings returns the settings a fresh session starts with
func DefaultSettings() Settings {
	return Settings{
		Model:         DefaultModel,
		SystemMessage: DefaultSystemMessage,
		UserMessage:   DefaultUserMessage,
	}
}

// DefaultData returns an empty session
func DefaultData() Data {
	return Data{
		Settings: DefaultSettings(),
		Nodes:    []Node{},
	}
}

// Default returns the default value of a single setting
func (s Settings) Default(key SettingKey) string {
	d := DefaultSettings()
	switch key {
	case SettingModel:
		return d.Model
	case SettingSystemMessage:
		return d.SystemMessage
	case SettingUserMessage:
		return d.UserMessage
	}
	return ""
}

// Apply returns s with the non-nil fields of p applied
func (s Settings) Apply(p SettingsPatch) Settings {
	if p.APIKey != nil {
		s.APIKey = *p.APIKey
	}
	if p.Model != nil {
		s.Model = *p.Model
	}
	if p.SystemMessage != nil {
		s.SystemMessage = *p.SystemMessage
	}
	if p.UserMessage != nil {
		s.UserMessage = *p.UserMessage
	}
	return s
}

// Masked returns s with the credential reduced to its last four characters
func (s Settings) Masked() Settings {
	if n := len(s.APIKey); n > 0 {
		tail := ""
		if n > 8 {
			tail = s.APIKey[n-4:]
		}
		s.APIKey = "****" + tail
	}
	return s
}

// Decode parses a stored blob, filling any missing top-level key from the
// defaults. An empty blob yields DefaultData.
func Decode(blob []byte) (Data, error) {
	data := DefaultData()
	if len(blob) == 0 {
		return data, nil
	}

	var raw map[string]json.RawMessage
	if err := codec.Unmarshal(blob, &raw); err != nil {
		return Data{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	fields := []struct {
		key  string
		dest any
	}{
		{string(SettingAPIKey), &data.APIKey},
		{string(SettingModel), &data.Model},
		{string(SettingSystemMessage), &data.SystemMessage},
		{string(SettingUserMessage), &data.UserMessage},
		{"nodes", &data.Nodes},
		{"currentNodeId", &data.CurrentNodeID},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := codec.Unmarshal(v, f.dest); err != nil {
			return Data{}, fmt.Errorf("failed to unmarshal session field %q: %w", f.key, err)
		}
	}

	if data.Nodes == nil {
		data.Nodes = []Node{}
	}
	return data, nil
}

// Encode serializes the blob
func Encode(data Data) ([]byte, error) {
	if data.Nodes == nil {
		data.Nodes = []Node{}
	}
	blob, err := codec.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return blob, nil
}

package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEmptyBlobYieldsDefaults(t *testing.T) {
	for _, blob := range [][]byte{nil, []byte("{}")} {
		data, err := Decode(blob)
		require.NoError(t, err)
		assert.Equal(t, DefaultSettings(), data.Settings)
		assert.NotNil(t, data.Nodes)
		assert.Empty(t, data.Nodes)
		assert.Nil(t, data.CurrentNodeID)
	}
}

func TestDecodeMergesMissingKeys(t *testing.T) {
	blob := []byte(`{
		"apiKey": "sk-1",
		"nodes": [{"id": "a", "url": "example.com", "content": null, "parentId": null, "lastVisited": 5}],
		"currentNodeId": "a"
	}`)

	data, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, "sk-1", data.APIKey)
	assert.Equal(t, DefaultModel, data.Model)
	assert.Equal(t, DefaultSystemMessage, data.SystemMessage)
	assert.Equal(t, DefaultUserMessage, data.UserMessage)
	require.Len(t, data.Nodes, 1)
	assert.Equal(t, int64(5), *data.Nodes[0].LastVisited)
	require.NotNil(t, data.CurrentNodeID)
	assert.Equal(t, "a", *data.CurrentNodeID)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"nodes": "nope"}`))
	assert.Error(t, err)
}

func TestEncodeUsesStoredKeys(t *testing.T) {
	s := newTestStore()
	root := s.CreateNode("example.com", "", true)
	s.UpdateContent(root, "<html></html>")

	blob, err := Encode(s.Snapshot())
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &raw))
	for _, key := range []string{"apiKey", "model", "systemMessage", "userMessage", "nodes", "currentNodeId"} {
		assert.Contains(t, raw, key)
	}

	back, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), back)
}

func TestEncodeNilNodes(t *testing.T) {
	blob, err := Encode(Data{Settings: DefaultSettings()})
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"nodes":[]`)
}

func TestSettingsMasked(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"short", "****"},
		{"sk-ant-api03-abcdWXYZ", "****WXYZ"},
	}
	for _, tt := range tests {
		s := Settings{APIKey: tt.key, Model: DefaultModel}
		masked := s.Masked()
		assert.Equal(t, tt.want, masked.APIKey)
		assert.Equal(t, DefaultModel, masked.Model)
		assert.Equal(t, tt.key, s.APIKey, "receiver is not modified")
	}
}

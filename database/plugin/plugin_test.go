// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plugin_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/gavel/database/plugin"
)

func TestSetPluginOption(t *testing.T) {
	pluginName, opts := registerTestPlugin(t, plugin.PluginTypeMetadata)
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, pluginName, "name", "set"))
	assert.Equal(t, "set", opts.name)
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, pluginName, "size", 42))
	assert.Equal(t, uint64(42), opts.size)
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, pluginName, "enabled", true))
	assert.True(t, opts.enabled)

	// Wrong value types are rejected
	require.Error(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, pluginName, "name", 123))
	require.Error(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, pluginName, "size", -1))
	// Unknown options are ignored
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, pluginName, "does-not-exist", "x"))
	// Unknown plugins are an error
	require.Error(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, "nonexistent", "name", "x"))
}

func TestStartPlugin(t *testing.T) {
	pluginName, _ := registerTestPlugin(t, plugin.PluginTypeBlob)
	p, err := plugin.StartPlugin(plugin.PluginTypeBlob, pluginName, plugin.RuntimeOptions{})
	require.NoError(t, err)
	require.NotNil(t, p)

	_, err = plugin.StartPlugin(plugin.PluginTypeBlob, "nonexistent", plugin.RuntimeOptions{})
	require.Error(t, err)

	errStart := errors.New("cannot open")
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeBlob,
		Name: "broken-" + t.Name(),
		NewFromOptionsFunc: func(plugin.RuntimeOptions) plugin.Plugin {
			return plugin.NewErrorPlugin(errStart)
		},
	})
	_, err = plugin.StartPlugin(plugin.PluginTypeBlob, "broken-"+t.Name(), plugin.RuntimeOptions{})
	require.ErrorIs(t, err, errStart)
}

func TestPluginTypeName(t *testing.T) {
	assert.Equal(t, "blob", plugin.PluginTypeName(plugin.PluginTypeBlob))
	assert.Equal(t, "metadata", plugin.PluginTypeName(plugin.PluginTypeMetadata))
	assert.Equal(t, "unknown", plugin.PluginTypeName(0))
	pluginType, ok := plugin.PluginTypeByName("metadata")
	require.True(t, ok)
	assert.Equal(t, plugin.PluginTypeMetadata, pluginType)
}

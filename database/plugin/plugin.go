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

package plugin

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

type Plugin interface {
	Start() error
	Stop() error
}

// RuntimeOptions are the process-level settings passed to a plugin when it
// is instantiated. An empty DataDir selects in-memory storage.
type RuntimeOptions struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	DataDir      string
}

// ErrorPlugin is a plugin that always returns an error on Start()
type ErrorPlugin struct {
	Err error
}

func (e *ErrorPlugin) Start() error {
	return e.Err
}

func (e *ErrorPlugin) Stop() error {
	return nil
}

// NewErrorPlugin creates a new error plugin that returns the given error on Start()
func NewErrorPlugin(err error) Plugin {
	return &ErrorPlugin{Err: err}
}

// StartPlugin gets a plugin from the registry and starts it
func StartPlugin(
	pluginType PluginType,
	pluginName string,
	opts RuntimeOptions,
) (Plugin, error) {
	p := GetPlugin(pluginType, pluginName, opts)
	if p == nil {
		return nil, fmt.Errorf(
			"%s plugin '%s' not found",
			PluginTypeName(pluginType),
			pluginName,
		)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf(
			"failed to start %s plugin '%s': %w",
			PluginTypeName(pluginType),
			pluginName,
			err,
		)
	}
	return p, nil
}

// SetPluginOption sets the value of a named option for a plugin entry. It
// must be called before the plugin is instantiated. Setting an option the
// plugin does not define is not an error.
func SetPluginOption(
	pluginType PluginType,
	pluginName string,
	optionName string,
	value any,
) error {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	for _, entry := range pluginEntries {
		if entry.Type != pluginType || entry.Name != pluginName {
			continue
		}
		for _, opt := range entry.Options {
			if opt.Name == optionName {
				return opt.setValue(value)
			}
		}
		return nil
	}
	return fmt.Errorf(
		"plugin %s of type %s not found",
		pluginName,
		PluginTypeName(pluginType),
	)
}

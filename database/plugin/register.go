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
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to plugin option environment variables, for
// example GAVEL_BLOB_BADGER_BLOCK_CACHE_SIZE
const EnvPrefix = "GAVEL"

type PluginType int

const (
	PluginTypeBlob PluginType = iota + 1
	PluginTypeMetadata
)

var pluginTypeNames = map[PluginType]string{
	PluginTypeBlob:     "blob",
	PluginTypeMetadata: "metadata",
}

func PluginTypeName(pluginType PluginType) string {
	if name, ok := pluginTypeNames[pluginType]; ok {
		return name
	}
	return "unknown"
}

// PluginTypeByName returns the plugin type for a name such as "blob"
func PluginTypeByName(name string) (PluginType, bool) {
	for pluginType, typeName := range pluginTypeNames {
		if typeName == name {
			return pluginType, true
		}
	}
	return 0, false
}

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota + 1
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
)

// PluginOption describes a tunable plugin setting. Dest points at the
// variable holding the setting and must match Type: *string, *bool, *int or
// *uint64.
type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	Type         PluginOptionType
}

type PluginEntry struct {
	NewFromOptionsFunc func(RuntimeOptions) Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var (
	pluginEntries      []PluginEntry
	pluginEntriesMutex sync.Mutex
)

// Register adds a plugin to the registry. Plugins register themselves from
// init().
func Register(pluginEntry PluginEntry) {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns the registered plugins of a type, sorted by name
func GetPlugins(pluginType PluginType) []PluginEntry {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	ret := []PluginEntry{}
	for _, entry := range pluginEntries {
		if entry.Type == pluginType {
			ret = append(ret, entry)
		}
	}
	slices.SortFunc(ret, func(a, b PluginEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return ret
}

// GetPlugin returns a new instance of the named plugin, or nil if no such
// plugin is registered
func GetPlugin(
	pluginType PluginType,
	pluginName string,
	opts RuntimeOptions,
) Plugin {
	pluginEntriesMutex.Lock()
	var newFunc func(RuntimeOptions) Plugin
	for _, entry := range pluginEntries {
		if entry.Type == pluginType && entry.Name == pluginName {
			newFunc = entry.NewFromOptionsFunc
			break
		}
	}
	pluginEntriesMutex.Unlock()
	if newFunc == nil {
		return nil
	}
	return newFunc(opts)
}

// PopulateCmdlineOptions adds a flag for every plugin option, named
// <type>-<plugin>-<option>
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	for _, entry := range pluginEntries {
		for _, opt := range entry.Options {
			flagName := strings.Join(
				[]string{PluginTypeName(entry.Type), entry.Name, opt.Name},
				"-",
			)
			if err := opt.addToFlagSet(fs, flagName); err != nil {
				return fmt.Errorf("plugin %s: %w", entry.Name, err)
			}
		}
	}
	return nil
}

// ProcessEnvVars applies plugin option values from the environment
func ProcessEnvVars() error {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	for _, entry := range pluginEntries {
		for _, opt := range entry.Options {
			envName := strings.ToUpper(
				strings.NewReplacer("-", "_", ".", "_").Replace(
					strings.Join(
						[]string{EnvPrefix, PluginTypeName(entry.Type), entry.Name, opt.Name},
						"_",
					),
				),
			)
			val, ok := os.LookupEnv(envName)
			if !ok {
				continue
			}
			if err := opt.setString(val); err != nil {
				return fmt.Errorf("environment variable %s: %w", envName, err)
			}
		}
	}
	return nil
}

// ProcessConfig applies plugin option values from a config file, keyed by
// plugin type name, then plugin name, then option name
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	pluginEntriesMutex.Lock()
	defer pluginEntriesMutex.Unlock()
	for typeName, typeConfig := range pluginConfig {
		pluginType, ok := PluginTypeByName(typeName)
		if !ok {
			return fmt.Errorf("unknown plugin type: %s", typeName)
		}
		for _, entry := range pluginEntries {
			if entry.Type != pluginType {
				continue
			}
			optValues, ok := typeConfig[entry.Name]
			if !ok {
				continue
			}
			for _, opt := range entry.Options {
				val, ok := optValues[opt.Name]
				if !ok {
					continue
				}
				if err := opt.setValue(val); err != nil {
					return fmt.Errorf(
						"%s plugin %s: %w",
						typeName,
						entry.Name,
						err,
					)
				}
			}
		}
	}
	return nil
}

func (p PluginOption) addToFlagSet(fs *pflag.FlagSet, flagName string) error {
	switch p.Type {
	case PluginOptionTypeString:
		dest, ok := p.Dest.(*string)
		def, _ := p.DefaultValue.(string)
		if !ok {
			return p.destError()
		}
		fs.StringVar(dest, flagName, def, p.Description)
	case PluginOptionTypeBool:
		dest, ok := p.Dest.(*bool)
		def, _ := p.DefaultValue.(bool)
		if !ok {
			return p.destError()
		}
		fs.BoolVar(dest, flagName, def, p.Description)
	case PluginOptionTypeInt:
		dest, ok := p.Dest.(*int)
		def, _ := p.DefaultValue.(int)
		if !ok {
			return p.destError()
		}
		fs.IntVar(dest, flagName, def, p.Description)
	case PluginOptionTypeUint:
		dest, ok := p.Dest.(*uint64)
		def, _ := p.DefaultValue.(uint64)
		if !ok {
			return p.destError()
		}
		fs.Uint64Var(dest, flagName, def, p.Description)
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, p.Name)
	}
	return nil
}

// setString parses a string value, as found in the environment, into the
// option destination
func (p PluginOption) setString(val string) error {
	switch p.Type {
	case PluginOptionTypeString:
		return p.setValue(val)
	case PluginOptionTypeBool:
		tmpVal, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("option %s: %w", p.Name, err)
		}
		return p.setValue(tmpVal)
	case PluginOptionTypeInt:
		tmpVal, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("option %s: %w", p.Name, err)
		}
		return p.setValue(tmpVal)
	case PluginOptionTypeUint:
		tmpVal, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("option %s: %w", p.Name, err)
		}
		return p.setValue(tmpVal)
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, p.Name)
	}
}

// setValue performs a type-checked assignment into the option destination.
// Integer options accept any Go integer type since YAML decodes numbers as
// int.
func (p PluginOption) setValue(value any) error {
	switch p.Type {
	case PluginOptionTypeString:
		v, ok := value.(string)
		if !ok {
			return p.typeError("string")
		}
		dest, ok := p.Dest.(*string)
		if !ok || dest == nil {
			return p.destError()
		}
		*dest = v
	case PluginOptionTypeBool:
		v, ok := value.(bool)
		if !ok {
			return p.typeError("bool")
		}
		dest, ok := p.Dest.(*bool)
		if !ok || dest == nil {
			return p.destError()
		}
		*dest = v
	case PluginOptionTypeInt:
		v, ok := value.(int)
		if !ok {
			return p.typeError("int")
		}
		dest, ok := p.Dest.(*int)
		if !ok || dest == nil {
			return p.destError()
		}
		*dest = v
	case PluginOptionTypeUint:
		var v uint64
		switch tv := value.(type) {
		case uint64:
			v = tv
		case uint:
			v = uint64(tv)
		case int:
			if tv < 0 {
				return fmt.Errorf("invalid value for option %s: negative int", p.Name)
			}
			v = uint64(tv)
		default:
			return p.typeError("uint64 or int")
		}
		dest, ok := p.Dest.(*uint64)
		if !ok || dest == nil {
			return p.destError()
		}
		*dest = v
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, p.Name)
	}
	return nil
}

func (p PluginOption) typeError(expected string) error {
	return fmt.Errorf("invalid type for option %s: expected %s", p.Name, expected)
}

func (p PluginOption) destError() error {
	return fmt.Errorf("invalid destination for option %s", p.Name)
}

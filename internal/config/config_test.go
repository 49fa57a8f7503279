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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gavel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_CompareFullStruct(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	yamlContent := `
bindAddr: "127.0.0.1"
databasePath: "/var/lib/gavel"
rpcPort: 9191
rpcUrl: "http://10.0.0.1:9191"
metricsPort: 12800
shutdownTimeout: "45s"
tlsCertFilePath: "cert1.pem"
tlsKeyFilePath: "key1.pem"
queueSize: 64
tracing: true
tracingStdout: true
genesisMembers:
  - "/etc/gavel/member0.pem"
  - "/etc/gavel/member1.pem"
`
	expected := &Config{
		BindAddr:        "127.0.0.1",
		DatabasePath:    "/var/lib/gavel",
		RpcPort:         9191,
		RpcUrl:          "http://10.0.0.1:9191",
		MetricsPort:     12800,
		ShutdownTimeout: "45s",
		TlsCertFilePath: "cert1.pem",
		TlsKeyFilePath:  "key1.pem",
		QueueSize:       64,
		Tracing:         true,
		TracingStdout:   true,
		GenesisMembers: []string{
			"/etc/gavel/member0.pem",
			"/etc/gavel/member1.pem",
		},
		BlobPlugin:     DefaultBlobPlugin,
		MetadataPlugin: DefaultMetadataPlugin,
	}

	actual, err := LoadConfig(writeConfigFile(t, yamlContent))
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
	assert.Same(t, actual, GetConfig())
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	// Point HOME somewhere empty so ~/.gavel/gavel.yaml is not picked up
	t.Setenv("HOME", t.TempDir())
	if _, err := os.Stat("/etc/gavel/gavel.yaml"); err == nil {
		t.Skip("system config file present")
	}

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoad_UserConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".gavel"), 0o755))
	require.NoError(
		t,
		os.WriteFile(
			filepath.Join(home, ".gavel", "gavel.yaml"),
			[]byte("rpcPort: 9292\n"),
			0o600,
		),
	)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, uint(9292), cfg.RpcPort)
	assert.Equal(t, "0.0.0.0", cfg.BindAddr)
}

func TestLoad_ConfigSectionKeepsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	yamlContent := `
config:
  metricsPort: 13000
database:
  blob:
    plugin: badger
    badger:
      gc: false
  metadata:
    plugin: sqlite
`
	cfg, err := LoadConfig(writeConfigFile(t, yamlContent))
	require.NoError(t, err)
	assert.Equal(t, uint(13000), cfg.MetricsPort)
	assert.Equal(t, uint(9090), cfg.RpcPort)
	assert.Equal(t, ".gavel", cfg.DatabasePath)
	assert.Equal(t, "badger", cfg.BlobPlugin)
	assert.Equal(t, "sqlite", cfg.MetadataPlugin)
}

func TestLoad_DatabaseSectionSelectsPlugins(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	yamlContent := `
database:
  blob:
    plugin: other-blob
  metadata:
    plugin: other-metadata
`
	cfg, err := LoadConfig(writeConfigFile(t, yamlContent))
	require.NoError(t, err)
	assert.Equal(t, "other-blob", cfg.BlobPlugin)
	assert.Equal(t, "other-metadata", cfg.MetadataPlugin)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GAVEL_RPC_PORT", "9393")
	t.Setenv("GAVEL_DATABASE_PATH", "/tmp/gavel-env")
	t.Setenv("GAVEL_DATABASE_BLOB_PLUGIN", "env-blob")
	t.Setenv("GAVEL_TLS_CERT_FILE_PATH", "env-cert.pem")

	cfg, err := LoadConfig(writeConfigFile(t, "rpcPort: 9191\n"))
	require.NoError(t, err)
	assert.Equal(t, uint(9393), cfg.RpcPort)
	assert.Equal(t, "/tmp/gavel-env", cfg.DatabasePath)
	assert.Equal(t, "env-blob", cfg.BlobPlugin)
	assert.Equal(t, "env-cert.pem", cfg.TlsCertFilePath)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	testDefs := []struct {
		name    string
		content string
	}{
		{name: "invalid yaml", content: "rpcPort: [\n"},
		{name: "invalid shutdown timeout", content: "shutdownTimeout: soon\n"},
		{name: "negative shutdown timeout", content: "shutdownTimeout: -5s\n"},
		{name: "negative queue size", content: "queueSize: -1\n"},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfigFile(t, testDef.content))
			require.Error(t, err)
		})
	}
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestShutdownTimeoutDuration(t *testing.T) {
	cfg := &Config{}
	timeout, err := cfg.ShutdownTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)

	cfg.ShutdownTimeout = "2m"
	timeout, err = cfg.ShutdownTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, timeout)
}

func TestGenesisCertificates(t *testing.T) {
	dir := t.TempDir()
	cert0 := filepath.Join(dir, "member0.pem")
	cert1 := filepath.Join(dir, "member1.pem")
	require.NoError(t, os.WriteFile(cert0, []byte("member0"), 0o600))
	require.NoError(t, os.WriteFile(cert1, []byte("member1"), 0o600))

	cfg := &Config{GenesisMembers: []string{cert0, cert1}}
	certs, err := cfg.GenesisCertificates()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("member0"), []byte("member1")}, certs)

	empty := filepath.Join(dir, "empty.pem")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	cfg.GenesisMembers = []string{empty}
	_, err = cfg.GenesisCertificates()
	require.Error(t, err)

	cfg.GenesisMembers = []string{filepath.Join(dir, "missing.pem")}
	_, err = cfg.GenesisCertificates()
	require.Error(t, err)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := defaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}

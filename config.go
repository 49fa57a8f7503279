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

package gavel

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/gavel/database/plugin"
)

type Config struct {
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	rpcListener     net.Listener
	dataDir         string
	blobPlugin      string
	metadataPlugin  string
	rpcHost         string
	tlsCertFilePath string
	tlsKeyFilePath  string
	genesisMembers  [][]byte
	rpcPort         uint
	queueSize       int
	shutdownTimeout time.Duration
	tracing         bool
	tracingStdout   bool
}

func (n *Node) configValidate() error {
	if n.config.blobPlugin != "" {
		if !pluginRegistered(plugin.PluginTypeBlob, n.config.blobPlugin) {
			return fmt.Errorf("unknown blob plugin: %s", n.config.blobPlugin)
		}
	}
	if n.config.metadataPlugin != "" {
		if !pluginRegistered(plugin.PluginTypeMetadata, n.config.metadataPlugin) {
			return fmt.Errorf("unknown metadata plugin: %s", n.config.metadataPlugin)
		}
	}
	if n.config.rpcPort > 65535 {
		return fmt.Errorf("invalid RPC port: %d", n.config.rpcPort)
	}
	if (n.config.tlsCertFilePath == "") != (n.config.tlsKeyFilePath == "") {
		return errors.New("TLS requires both a certificate and a key")
	}
	if n.config.queueSize < 0 {
		return fmt.Errorf("invalid queue size: %d", n.config.queueSize)
	}
	seen := make(map[string]bool, len(n.config.genesisMembers))
	for idx, cert := range n.config.genesisMembers {
		if len(cert) == 0 {
			return fmt.Errorf("genesis member %d has an empty certificate", idx+1)
		}
		if seen[string(cert)] {
			return fmt.Errorf("genesis member %d has a duplicate certificate", idx+1)
		}
		seen[string(cert)] = true
	}
	return nil
}

func pluginRegistered(pluginType plugin.PluginType, name string) bool {
	for _, entry := range plugin.GetPlugins(pluginType) {
		if entry.Name == name {
			return true
		}
	}
	return false
}

// ConfigOptionFunc is a type that represents functions that modify the Node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new gavel config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.DiscardHandler),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithGenesisMembers specifies the certificates of the members that are bootstrapped as Active when the database is empty
func WithGenesisMembers(certificates ...[]byte) ConfigOptionFunc {
	return func(c *Config) {
		c.genesisMembers = append(c.genesisMembers, certificates...)
	}
}

// WithQueueSize specifies how many transactions may wait for the ledger before submitters block
func WithQueueSize(size int) ConfigOptionFunc {
	return func(c *Config) {
		c.queueSize = size
	}
}

// WithRpcHost specifies the address to bind the RPC listener to. This defaults to 0.0.0.0
func WithRpcHost(host string) ConfigOptionFunc {
	return func(c *Config) {
		c.rpcHost = host
	}
}

// WithRpcPort specifies the port to use for the RPC listener. This defaults to port 9090
func WithRpcPort(port uint) ConfigOptionFunc {
	return func(c *Config) {
		c.rpcPort = port
	}
}

// WithRpcListener specifies an existing listener for the RPC server. It takes precedence over the host and port
func WithRpcListener(listener net.Listener) ConfigOptionFunc {
	return func(c *Config) {
		c.rpcListener = listener
	}
}

// WithRpcTlsCertFilePath specifies the path to the TLS certificate for the RPC listener. This defaults to empty
func WithRpcTlsCertFilePath(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.tlsCertFilePath = path
	}
}

// WithRpcTlsKeyFilePath specifies the path to the TLS key for the RPC listener. This defaults to empty
func WithRpcTlsKeyFilePath(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.tlsKeyFilePath = path
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

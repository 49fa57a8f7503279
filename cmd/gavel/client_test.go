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

package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/governance"
	"github.com/blinklabs-io/gavel/ledger"
	"github.com/blinklabs-io/gavel/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func startService(t *testing.T) string {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
		Database:     db,
		PromRegistry: prometheus.NewRegistry(),
		Genesis: [][]byte{
			[]byte("member-1-cert"),
			[]byte("member-2-cert"),
		},
	})
	require.NoError(t, err)
	require.NoError(t, ls.Start())
	server := rpc.NewServer(rpc.ServerConfig{Governance: ls})
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		httpServer.Close()
		assert.NoError(t, ls.Close())
		assert.NoError(t, db.Close())
	})
	return httpServer.URL
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out bytes.Buffer
	cmd := rootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClientCommands(t *testing.T) {
	url := startService(t)
	certFile := filepath.Join(t.TempDir(), "user.pem")
	require.NoError(t, os.WriteFile(certFile, []byte("user"), 0o600))

	// Two active members, so the proposer vote alone is not a majority
	out, err := runCommand(t,
		"propose", "add_user",
		"--url", url,
		"--member", "1",
		"--cert-file", certFile,
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), gjson.Get(out, "id").Uint())
	assert.False(t, gjson.Get(out, "completed").Bool())

	out, err = runCommand(t, "vote", "0", "accept", "--url", url, "--member", "2")
	require.NoError(t, err)
	assert.True(t, gjson.Get(out, "recorded").Bool())
	assert.True(t, gjson.Get(out, "completed").Bool())
	assert.Equal(t, "add_user", gjson.Get(out, "result.kind").String())
	assert.Equal(t, uint64(1), gjson.Get(out, "result.user_id").Uint())

	out, err = runCommand(t, "proposals", "--url", url)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gjson.Get(out, "#").Int())
	assert.True(t, gjson.Get(out, "0.completed").Bool())

	out, err = runCommand(t, "proposals", "0", "--url", url)
	require.NoError(t, err)
	assert.Equal(t, "add_user", gjson.Get(out, "action").String())

	out, err = runCommand(t, "members", "--url", url)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gjson.Get(out, "#").Int())
	assert.Equal(
		t,
		governance.MemberStatusActive.String(),
		gjson.Get(out, "0.status").String(),
	)
}

func TestClientCommandErrors(t *testing.T) {
	url := startService(t)

	// Member 3 does not exist
	_, err := runCommand(t,
		"propose", "accept_node",
		"--url", url,
		"--member", "3",
		"--uint-param", "node_id=1",
	)
	require.ErrorIs(t, err, governance.ErrInsufficientRights)

	_, err = runCommand(t, "removal", "5", "--url", url, "--member", "1")
	require.ErrorIs(t, err, governance.ErrProposalNotFound)

	_, err = runCommand(t, "vote", "0", "maybe", "--url", url, "--member", "1")
	require.Error(t, err)

	_, err = runCommand(t, "ack", "--url", url)
	require.Error(t, err)
}

func TestListAndVersionCommands(t *testing.T) {
	out, err := runCommand(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "badger")
	assert.Contains(t, out, "sqlite")

	out, err = runCommand(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, programName+" "))

	shouldExit, output := listPlugins("list", "")
	assert.True(t, shouldExit)
	assert.Contains(t, output, "Available blob plugins")
	shouldExit, _ = listPlugins("badger", "sqlite")
	assert.False(t, shouldExit)
}

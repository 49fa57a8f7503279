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

package gavel_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/gavel"
	"github.com/blinklabs-io/gavel/governance"
	"github.com/blinklabs-io/gavel/rpc"
)

func TestNodeRunAndStop(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	node, err := gavel.New(
		gavel.NewConfig(
			gavel.WithDatabasePath(t.TempDir()),
			gavel.WithRpcListener(listener),
			gavel.WithPrometheusRegistry(reg),
			gavel.WithGenesisMembers([]byte("member-1-cert"), []byte("member-2-cert")),
		),
	)
	require.NoError(t, err)
	runErr := make(chan error, 1)
	go func() {
		runErr <- node.Run()
	}()

	client := rpc.NewClient(nil, "http://"+listener.Addr().String())
	ctx := context.Background()
	var members []rpc.Member
	require.Eventually(t, func() bool {
		members, err = client.MemberDisplay(ctx)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	require.Len(t, members, 2)

	resp, err := client.Propose(ctx, 1, "add_user", []byte(`{"certificate":"dXNlcg=="}`))
	require.NoError(t, err)
	assert.False(t, resp.Completed)
	vresp, err := client.Vote(ctx, 2, resp.ID, true)
	require.NoError(t, err)
	require.True(t, vresp.Completed)
	require.NotNil(t, vresp.Result)
	assert.Empty(t, vresp.Result.Failure)
	assert.Equal(t, uint64(1), vresp.Result.UserID)

	proposal, err := node.LedgerState().Proposal(governance.ProposalID(resp.ID))
	require.NoError(t, err)
	assert.True(t, proposal.Completed)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["gavel_proposals_completed_total"])
	assert.True(t, names["gavel_event_published_total"])

	require.NoError(t, node.Stop())
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("node did not stop")
	}
	require.NoError(t, node.Stop())
}

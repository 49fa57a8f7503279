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
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/blinklabs-io/gavel/internal/config"
	"github.com/blinklabs-io/gavel/rpc"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

type clientFlags struct {
	url    string
	member uint64
}

func (f *clientFlags) register(cmd *cobra.Command, withMember bool) {
	cmd.Flags().StringVar(&f.url, "url", "", "URL of the governance service (default from config)")
	if withMember {
		cmd.Flags().Uint64Var(&f.member, "member", 0, "ID of the member making the request")
		_ = cmd.MarkFlagRequired("member")
	}
}

func (f *clientFlags) client(cmd *cobra.Command) (*rpc.Client, error) {
	url := f.url
	if url == "" {
		if cfg := config.FromContext(cmd.Context()); cfg != nil {
			url = cfg.RpcUrl
		}
	}
	if url == "" {
		return nil, errors.New("no service URL configured")
	}
	return rpc.NewClient(nil, url), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), gjson.GetBytes(buf, "@pretty").Raw)
	return nil
}

func parseProposalID(arg string) (uint64, error) {
	ret, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal ID %q: %w", arg, err)
	}
	return ret, nil
}

func clientCommands() []*cobra.Command {
	return []*cobra.Command{
		proposeCommand(),
		voteCommand(),
		ackCommand(),
		removalCommand(),
		proposalsCommand(),
		membersCommand(),
	}
}

func proposeCommand() *cobra.Command {
	var flags clientFlags
	var params actionParams
	cmd := &cobra.Command{
		Use:   "propose <action>",
		Short: "Propose an action (accept_node, add_user, raw_table_put, add_member, revoke_member)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paramsJSON, err := params.build()
			if err != nil {
				return err
			}
			client, err := flags.client(cmd)
			if err != nil {
				return err
			}
			resp, err := client.Propose(
				cmd.Context(),
				flags.member,
				args[0],
				paramsJSON,
			)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVar(&params.raw, "params", "", "action parameters as a JSON object")
	cmd.Flags().StringArrayVar(&params.stringParams, "param", nil, "string action parameter as key=value")
	cmd.Flags().StringArrayVar(&params.uintParams, "uint-param", nil, "integer action parameter as key=value")
	cmd.Flags().StringVar(&params.certFile, "cert-file", "", "file holding the certificate parameter")
	return cmd
}

func voteCommand() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "vote <proposal-id> <accept|reject>",
		Short: "Vote on a proposal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			proposalID, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			var accept bool
			switch args[1] {
			case "accept":
				accept = true
			case "reject":
				accept = false
			default:
				return fmt.Errorf("invalid ballot %q: expected accept or reject", args[1])
			}
			client, err := flags.client(cmd)
			if err != nil {
				return err
			}
			resp, err := client.Vote(cmd.Context(), flags.member, proposalID, accept)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func ackCommand() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "ack",
		Short: "Acknowledge membership, making an accepted member active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client(cmd)
			if err != nil {
				return err
			}
			resp, err := client.Ack(cmd.Context(), flags.member)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func removalCommand() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "removal <proposal-id>",
		Short: "Withdraw an open proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proposalID, err := parseProposalID(args[0])
			if err != nil {
				return err
			}
			client, err := flags.client(cmd)
			if err != nil {
				return err
			}
			resp, err := client.Removal(cmd.Context(), flags.member, proposalID)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func proposalsCommand() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "proposals [proposal-id]",
		Short: "Show all proposals, or a single proposal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client(cmd)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				proposalID, err := parseProposalID(args[0])
				if err != nil {
					return err
				}
				proposal, err := client.ProposalGet(cmd.Context(), proposalID)
				if err != nil {
					return err
				}
				return printJSON(cmd, proposal)
			}
			proposals, err := client.ProposalDisplay(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, proposals)
		},
	}
	flags.register(cmd, false)
	return cmd
}

func membersCommand() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Show all members and their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.client(cmd)
			if err != nil {
				return err
			}
			members, err := client.MemberDisplay(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, members)
		},
	}
	flags.register(cmd, false)
	return cmd
}

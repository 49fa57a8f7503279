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

package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a remote governance service. Governance failures are
// returned as *governance.Error values.
type Client struct {
	propose         *connect.Client[ProposeRequest, ProposeResponse]
	vote            *connect.Client[VoteRequest, VoteResponse]
	ack             *connect.Client[AckRequest, AckResponse]
	removal         *connect.Client[RemovalRequest, RemovalResponse]
	proposalDisplay *connect.Client[ProposalDisplayRequest, ProposalDisplayResponse]
	proposalGet     *connect.Client[ProposalGetRequest, ProposalGetResponse]
	memberDisplay   *connect.Client[MemberDisplayRequest, MemberDisplayResponse]
}

// NewClient returns a client for the service at baseURL. A nil httpClient
// uses http.DefaultClient.
func NewClient(
	httpClient connect.HTTPClient,
	baseURL string,
	opts ...connect.ClientOption,
) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &Client{
		propose: connect.NewClient[ProposeRequest, ProposeResponse](
			httpClient, baseURL+ProposeProcedure, opts...,
		),
		vote: connect.NewClient[VoteRequest, VoteResponse](
			httpClient, baseURL+VoteProcedure, opts...,
		),
		ack: connect.NewClient[AckRequest, AckResponse](
			httpClient, baseURL+AckProcedure, opts...,
		),
		removal: connect.NewClient[RemovalRequest, RemovalResponse](
			httpClient, baseURL+RemovalProcedure, opts...,
		),
		proposalDisplay: connect.NewClient[ProposalDisplayRequest, ProposalDisplayResponse](
			httpClient, baseURL+ProposalDisplayProcedure, opts...,
		),
		proposalGet: connect.NewClient[ProposalGetRequest, ProposalGetResponse](
			httpClient, baseURL+ProposalGetProcedure, opts...,
		),
		memberDisplay: connect.NewClient[MemberDisplayRequest, MemberDisplayResponse](
			httpClient, baseURL+MemberDisplayProcedure, opts...,
		),
	}
}

func callUnary[Req, Res any](
	ctx context.Context,
	client *connect.Client[Req, Res],
	req *Req,
) (*Res, error) {
	resp, err := client.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return resp.Msg, nil
}

// Propose submits a proposal. Params are the JSON parameters of the action.
func (c *Client) Propose(
	ctx context.Context,
	member uint64,
	action string,
	params []byte,
) (*ProposeResponse, error) {
	return callUnary(ctx, c.propose, &ProposeRequest{
		Member: member,
		Action: action,
		Params: json.RawMessage(params),
	})
}

func (c *Client) Vote(
	ctx context.Context,
	member uint64,
	proposalID uint64,
	accept bool,
) (*VoteResponse, error) {
	return callUnary(ctx, c.vote, &VoteRequest{
		Member:     member,
		ProposalID: proposalID,
		Accept:     accept,
	})
}

func (c *Client) Ack(ctx context.Context, member uint64) (*AckResponse, error) {
	return callUnary(ctx, c.ack, &AckRequest{Member: member})
}

func (c *Client) Removal(
	ctx context.Context,
	member uint64,
	proposalID uint64,
) (*RemovalResponse, error) {
	return callUnary(ctx, c.removal, &RemovalRequest{
		Member:     member,
		ProposalID: proposalID,
	})
}

func (c *Client) ProposalDisplay(ctx context.Context) ([]Proposal, error) {
	resp, err := callUnary(ctx, c.proposalDisplay, &ProposalDisplayRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Proposals, nil
}

func (c *Client) ProposalGet(ctx context.Context, proposalID uint64) (*Proposal, error) {
	resp, err := callUnary(ctx, c.proposalGet, &ProposalGetRequest{ProposalID: proposalID})
	if err != nil {
		return nil, err
	}
	return &resp.Proposal, nil
}

func (c *Client) MemberDisplay(ctx context.Context) ([]Member, error) {
	resp, err := callUnary(ctx, c.memberDisplay, &MemberDisplayRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Members, nil
}

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
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/blinklabs-io/gavel/governance"
)

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 9090
)

// Governance is the set of operations served over RPC
type Governance interface {
	// ProposeParams parses the action tag and JSON parameters only after
	// the proposer's rights are checked
	ProposeParams(context.Context, governance.MemberID, string, []byte) (governance.ProposeResult, error)
	Vote(context.Context, governance.ProposalID, governance.MemberID, bool) (governance.VoteResult, error)
	Ack(context.Context, governance.MemberID) error
	Remove(context.Context, governance.ProposalID, governance.MemberID) error
	Proposals() ([]governance.Proposal, error)
	Proposal(governance.ProposalID) (governance.Proposal, error)
	Members() ([]governance.Member, error)
}

type ServerConfig struct {
	Logger          *slog.Logger
	Governance      Governance
	Host            string
	TlsCertFilePath string
	TlsKeyFilePath  string
	Port            uint
}

type Server struct {
	config     ServerConfig
	httpServer *http.Server
	listener   net.Listener
	wg         sync.WaitGroup
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	cfg.Logger = cfg.Logger.With("component", "rpc")
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	return &Server{
		config: cfg,
	}
}

// Handler returns the HTTP handler serving the governance service and the
// gRPC health check
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	opts := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithCompressMinBytes(1024),
	}
	svc := &governanceServiceServer{server: s}
	mux.Handle(ProposeProcedure, connect.NewUnaryHandler(ProposeProcedure, svc.Propose, opts...))
	mux.Handle(VoteProcedure, connect.NewUnaryHandler(VoteProcedure, svc.Vote, opts...))
	mux.Handle(AckProcedure, connect.NewUnaryHandler(AckProcedure, svc.Ack, opts...))
	mux.Handle(RemovalProcedure, connect.NewUnaryHandler(RemovalProcedure, svc.Removal, opts...))
	mux.Handle(
		ProposalDisplayProcedure,
		connect.NewUnaryHandler(ProposalDisplayProcedure, svc.ProposalDisplay, opts...),
	)
	mux.Handle(
		ProposalGetProcedure,
		connect.NewUnaryHandler(ProposalGetProcedure, svc.ProposalGet, opts...),
	)
	mux.Handle(
		MemberDisplayProcedure,
		connect.NewUnaryHandler(MemberDisplayProcedure, svc.MemberDisplay, opts...),
	)
	mux.Handle(
		grpchealth.NewHandler(
			grpchealth.NewStaticChecker(GovernanceServiceName),
			connect.WithCompressMinBytes(1024),
		),
	)
	return mux
}

// Start binds the listener and serves requests in the background
func (s *Server) Start() error {
	if s.config.Governance == nil {
		return errors.New("no governance provided")
	}
	addr := net.JoinHostPort(s.config.Host, strconv.FormatUint(uint64(s.config.Port), 10))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if err := s.Serve(listener); err != nil {
		_ = listener.Close()
		return err
	}
	return nil
}

// Serve serves requests on an existing listener in the background
func (s *Server) Serve(listener net.Listener) error {
	if s.config.Governance == nil {
		return errors.New("no governance provided")
	}
	if s.httpServer != nil {
		return errors.New("server already started")
	}
	s.listener = listener
	useTls := s.config.TlsCertFilePath != "" && s.config.TlsKeyFilePath != ""
	handler := s.Handler()
	if !useTls {
		// Use h2c so we can serve HTTP/2 without TLS
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var err error
		if useTls {
			s.config.Logger.Info(
				"starting gRPC TLS listener on " + listener.Addr().String(),
			)
			err = s.httpServer.ServeTLS(
				listener,
				s.config.TlsCertFilePath,
				s.config.TlsKeyFilePath,
			)
		} else {
			s.config.Logger.Info(
				"starting gRPC listener on " + listener.Addr().String(),
			)
			err = s.httpServer.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.config.Logger.Error(
				"RPC server failed",
				"error", err,
			)
		}
	}()
	return nil
}

// Addr returns the address the server is listening on
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	return err
}

// governanceServiceServer implements the governance RPC procedures
type governanceServiceServer struct {
	server *Server
}

func (g *governanceServiceServer) gov() Governance {
	return g.server.config.Governance
}

func (g *governanceServiceServer) logger() *slog.Logger {
	return g.server.config.Logger
}

func (g *governanceServiceServer) Propose(
	ctx context.Context,
	req *connect.Request[ProposeRequest],
) (*connect.Response[ProposeResponse], error) {
	result, err := g.gov().ProposeParams(
		ctx,
		governance.MemberID(req.Msg.Member),
		req.Msg.Action,
		req.Msg.Params,
	)
	if err != nil {
		g.logger().Debug(
			"propose rejected",
			"member", req.Msg.Member,
			"action", req.Msg.Action,
			"error", err,
		)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ProposeResponse{
		ID:        uint64(result.ID),
		Completed: result.Completed,
		Result:    actionResultFromGovernance(result.Result),
	}), nil
}

func (g *governanceServiceServer) Vote(
	ctx context.Context,
	req *connect.Request[VoteRequest],
) (*connect.Response[VoteResponse], error) {
	result, err := g.gov().Vote(
		ctx,
		governance.ProposalID(req.Msg.ProposalID),
		governance.MemberID(req.Msg.Member),
		req.Msg.Accept,
	)
	if err != nil {
		g.logger().Debug(
			"vote rejected",
			"member", req.Msg.Member,
			"proposal", req.Msg.ProposalID,
			"error", err,
		)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&VoteResponse{
		Recorded:  result.Recorded,
		Completed: result.Completed,
		Result:    actionResultFromGovernance(result.Result),
	}), nil
}

func (g *governanceServiceServer) Ack(
	ctx context.Context,
	req *connect.Request[AckRequest],
) (*connect.Response[AckResponse], error) {
	if err := g.gov().Ack(ctx, governance.MemberID(req.Msg.Member)); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AckResponse{Result: true}), nil
}

func (g *governanceServiceServer) Removal(
	ctx context.Context,
	req *connect.Request[RemovalRequest],
) (*connect.Response[RemovalResponse], error) {
	err := g.gov().Remove(
		ctx,
		governance.ProposalID(req.Msg.ProposalID),
		governance.MemberID(req.Msg.Member),
	)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&RemovalResponse{Result: true}), nil
}

func (g *governanceServiceServer) ProposalDisplay(
	ctx context.Context,
	req *connect.Request[ProposalDisplayRequest],
) (*connect.Response[ProposalDisplayResponse], error) {
	proposals, err := g.gov().Proposals()
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &ProposalDisplayResponse{
		Proposals: make([]Proposal, 0, len(proposals)),
	}
	for _, proposal := range proposals {
		tmpProposal, err := proposalFromGovernance(proposal)
		if err != nil {
			return nil, toConnectError(err)
		}
		resp.Proposals = append(resp.Proposals, tmpProposal)
	}
	return connect.NewResponse(resp), nil
}

func (g *governanceServiceServer) ProposalGet(
	ctx context.Context,
	req *connect.Request[ProposalGetRequest],
) (*connect.Response[ProposalGetResponse], error) {
	proposal, err := g.gov().Proposal(governance.ProposalID(req.Msg.ProposalID))
	if err != nil {
		return nil, toConnectError(err)
	}
	tmpProposal, err := proposalFromGovernance(proposal)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ProposalGetResponse{Proposal: tmpProposal}), nil
}

func (g *governanceServiceServer) MemberDisplay(
	ctx context.Context,
	req *connect.Request[MemberDisplayRequest],
) (*connect.Response[MemberDisplayResponse], error) {
	members, err := g.gov().Members()
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &MemberDisplayResponse{
		Members: make([]Member, 0, len(members)),
	}
	for _, member := range members {
		resp.Members = append(resp.Members, memberFromGovernance(member))
	}
	return connect.NewResponse(resp), nil
}

package ipc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mymonad/aura/pkg/aura"
)

const serviceName = "aura.v1.Ledger"

func fullMethod(name string) string {
	return "/" + serviceName + "/" + name
}

// unary adapts a typed handler into a grpc.MethodDesc.
func unary[Req any](name string, call func(s *Server, ctx context.Context, req *Req) (any, error)) grpc.MethodDesc {
	method := fullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
			}
			s := srv.(*Server)
			handler := func(ctx context.Context, r any) (any, error) {
				resp, err := call(s, ctx, r.(*Req))
				if err != nil {
					return nil, toStatus(err)
				}
				return resp, nil
			}
			if interceptor == nil {
				return handler(ctx, req)
			}
			return interceptor(ctx, req, &grpc.UnaryServerInfo{Server: srv, FullMethod: method}, handler)
		},
	}
}

// signed adapts a handler of an authenticated call. The envelope is
// verified against the method name before the payload is decoded.
func signed[P any](name string, call func(s *Server, ctx context.Context, caller aura.Principal, req *P) (any, error)) grpc.MethodDesc {
	method := fullMethod(name)
	return unary(name, func(s *Server, ctx context.Context, env *Envelope) (any, error) {
		caller, err := s.auth.Verify(method, env)
		if err != nil {
			return nil, err
		}
		req := new(P)
		if err := json.Unmarshal(env.Payload, req); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "decode payload: %v", err)
		}
		return call(s, ctx, caller, req)
	})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		signed("Register", func(s *Server, ctx context.Context, caller aura.Principal, r *RegisterRequest) (any, error) {
			return s.ledger.Register(ctx, caller, r.Biometric, r.Preferences, r.Proof)
		}),
		signed("UpdatePreferences", func(s *Server, ctx context.Context, caller aura.Principal, r *UpdatePreferencesRequest) (any, error) {
			return &Empty{}, s.ledger.UpdatePreferences(ctx, caller, r.Preferences, r.Proof)
		}),
		signed("SetActive", func(s *Server, _ context.Context, caller aura.Principal, r *SetActiveRequest) (any, error) {
			return &Empty{}, s.ledger.SetActive(caller, r.Principal, r.Active)
		}),
		signed("VerifyProfile", func(s *Server, _ context.Context, caller aura.Principal, r *PrincipalRequest) (any, error) {
			return &Empty{}, s.ledger.VerifyProfile(caller, r.Principal)
		}),
		signed("SubmitIntent", func(s *Server, ctx context.Context, caller aura.Principal, r *SubmitIntentRequest) (any, error) {
			return s.ledger.SubmitIntent(ctx, caller, r.Commitment, r.AuraThreshold, r.Proof)
		}),
		signed("RecordMutualMatch", func(s *Server, ctx context.Context, caller aura.Principal, r *RecordMatchRequest) (any, error) {
			return s.ledger.RecordMutualMatch(ctx, caller, r.A, r.B, r.Score, r.Proof)
		}),
		signed("InitiateReveal", func(s *Server, ctx context.Context, caller aura.Principal, r *InitiateRevealRequest) (any, error) {
			return s.ledger.InitiateReveal(ctx, caller, r.MatchID, r.RevealCommitment, r.Proof)
		}),
		signed("AwardBonus", func(s *Server, _ context.Context, caller aura.Principal, r *AdjustAuraRequest) (any, error) {
			return &Empty{}, s.ledger.AwardBonus(caller, r.Principal, r.Points, r.Reason)
		}),
		signed("DeductPenalty", func(s *Server, _ context.Context, caller aura.Principal, r *AdjustAuraRequest) (any, error) {
			removed, err := s.ledger.DeductPenalty(caller, r.Principal, r.Points, r.Reason)
			return &DeductResponse{Removed: removed}, err
		}),
		signed("SetPaused", func(s *Server, _ context.Context, caller aura.Principal, r *SetPausedRequest) (any, error) {
			return &Empty{}, s.ledger.SetPaused(caller, r.Paused)
		}),
		signed("TransferOwnership", func(s *Server, _ context.Context, caller aura.Principal, r *TransferOwnershipRequest) (any, error) {
			return &Empty{}, s.ledger.TransferOwnership(caller, r.NewOwner)
		}),

		unary("GetProfile", func(s *Server, _ context.Context, r *PrincipalRequest) (any, error) {
			return s.ledger.Profile(r.Principal)
		}),
		unary("GetIntent", func(s *Server, _ context.Context, r *DigestRequest) (any, error) {
			return s.ledger.Intent(r.Digest)
		}),
		unary("GetMatch", func(s *Server, _ context.Context, r *DigestRequest) (any, error) {
			return s.ledger.Match(r.Digest)
		}),
		unary("GetStats", func(s *Server, _ context.Context, _ *Empty) (any, error) {
			return s.ledger.Stats(), nil
		}),
		unary("HasRevealed", func(s *Server, _ context.Context, r *PairRequest) (any, error) {
			return &BoolResponse{Value: s.ledger.HasRevealed(r.Revealer, r.Counterpart)}, nil
		}),
		unary("RevealRecords", func(s *Server, _ context.Context, r *PrincipalRequest) (any, error) {
			return &RevealRecordsResponse{Records: s.ledger.RevealRecords(r.Principal)}, nil
		}),
		unary("EligibleCounterpart", func(s *Server, _ context.Context, r *EligibleRequest) (any, error) {
			ok, err := s.ledger.EligibleCounterpart(r.Commitment, r.Principal)
			return &BoolResponse{Value: ok}, err
		}),
		unary("Events", func(s *Server, ctx context.Context, r *EventsRequest) (any, error) {
			if s.events == nil {
				return nil, status.Error(codes.Unimplemented, "event journal disabled")
			}
			events, err := s.events.List(ctx, r.Principal, r.Limit)
			if err != nil {
				return nil, err
			}
			return &EventsResponse{Events: events}, nil
		}),
		unary("Capability", func(s *Server, _ context.Context, _ *Empty) (any, error) {
			return &CapabilityResponse{Capability: s.capability()}, nil
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "aura/v1/ledger",
}

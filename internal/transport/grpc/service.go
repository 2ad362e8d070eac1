package grpc

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/anigen/anigen/internal/transport"
	"github.com/anigen/anigen/internal/workflow"
)

const serviceName = "anigen.v1.Studio"

// StudioServer is the server API of the Studio service.
type StudioServer interface {
	Options(context.Context, *OptionsRequest) (*transport.Options, error)
	Balance(context.Context, *AccountRequest) (*BalanceReply, error)
	Compose(context.Context, *ComposeRequest) (*ComposeReply, error)
	Illustrate(context.Context, *IllustrateRequest) (*IllustrateReply, error)
	Credit(context.Context, *CreditRequest) (*BalanceReply, error)
	Watch(*AccountRequest, grpc.ServerStream) error
}

func unaryHandler[Req any, Reply any](method string, call func(StudioServer, context.Context, *Req) (*Reply, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StudioServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(StudioServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var studioServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*StudioServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Options", StudioServer.Options),
		unaryHandler("Balance", StudioServer.Balance),
		unaryHandler("Compose", StudioServer.Compose),
		unaryHandler("Illustrate", StudioServer.Illustrate),
		unaryHandler("Credit", StudioServer.Credit),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(AccountRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(StudioServer).Watch(in, stream)
			},
		},
	},
	Metadata: "anigen/v1/studio",
}

// studio implements StudioServer over a workflow.Manager.
type studio struct {
	manager    *workflow.Manager
	adminToken string
}

func (s *studio) Options(context.Context, *OptionsRequest) (*transport.Options, error) {
	opts := transport.Catalog(s.manager)
	return &opts, nil
}

func (s *studio) Balance(ctx context.Context, req *AccountRequest) (*BalanceReply, error) {
	session, err := s.manager.Session(ctx, req.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	return balanceReply(ctx, session)
}

func (s *studio) Compose(ctx context.Context, req *ComposeRequest) (*ComposeReply, error) {
	session, err := s.manager.Session(ctx, req.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := session.Generate(ctx, req.Params)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := transport.OutcomeError(out.State, out.Err); err != nil {
		return nil, toStatus(err)
	}

	reply := &ComposeReply{
		RequestID:   out.RequestID.String(),
		State:       out.State,
		Description: out.Description,
		HasAudio:    out.HasAudio(),
		Charged:     out.Charged,
	}
	if reply.HasAudio {
		reply.SampleRate = out.Audio.SampleRate
		if req.IncludeAudio {
			reply.PCM = out.Audio.PCM
		}
	}
	reply.Balance, _ = session.Ledger().Balance(ctx)
	return reply, nil
}

func (s *studio) Illustrate(ctx context.Context, req *IllustrateRequest) (*IllustrateReply, error) {
	session, err := s.manager.Session(ctx, req.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := session.GenerateImage(ctx, req.Prompt)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := transport.OutcomeError(out.State, out.Err); err != nil {
		return nil, toStatus(err)
	}
	reply := &IllustrateReply{
		RequestID: out.RequestID.String(),
		Image:     out.Image,
		Charged:   out.Charged,
	}
	reply.Balance, _ = session.Ledger().Balance(ctx)
	return reply, nil
}

func (s *studio) Credit(ctx context.Context, req *CreditRequest) (*BalanceReply, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	session, err := s.manager.Session(ctx, req.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	ref := req.Reference
	if ref == "" {
		ref = "admin:grpc:" + uuid.NewString()
	}
	if err := session.Ledger().Credit(ctx, req.Amount, ref); err != nil {
		return nil, toStatus(err)
	}
	return balanceReply(ctx, session)
}

func (s *studio) Watch(req *AccountRequest, stream grpc.ServerStream) error {
	session, err := s.manager.Session(stream.Context(), req.AccountID)
	if err != nil {
		return toStatus(err)
	}
	events, cancel := session.Subscribe()
	defer cancel()

	slog.Debug("grpc watch opened", "account", req.AccountID)
	for {
		select {
		case <-stream.Context().Done():
			return nil
		case tr, ok := <-events:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(&tr); err != nil {
				return err
			}
		}
	}
}

func (s *studio) authorize(ctx context.Context) error {
	if s.adminToken == "" {
		return status.Error(codes.PermissionDenied, "credit grants are disabled")
	}
	md, _ := metadata.FromIncomingContext(ctx)
	for _, v := range md.Get("authorization") {
		token, ok := strings.CutPrefix(v, "Bearer ")
		if ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1 {
			return nil
		}
	}
	return status.Error(codes.Unauthenticated, "admin token required")
}

func balanceReply(ctx context.Context, session *workflow.Session) (*BalanceReply, error) {
	snap, err := session.Ledger().Current(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &BalanceReply{
		AccountID:    snap.AccountID,
		Balance:      snap.Balance,
		MonthlyGrant: snap.MonthlyGrant,
		NextResetAt:  snap.NextResetAt,
	}, nil
}

func toStatus(err error) error {
	var code codes.Code
	switch transport.Classify(err) {
	case transport.CodeInvalid:
		code = codes.InvalidArgument
	case transport.CodeInsufficientCredits:
		code = codes.ResourceExhausted
	case transport.CodeBusy:
		code = codes.Aborted
	case transport.CodeNotFound:
		code = codes.NotFound
	case transport.CodeRemote, transport.CodeUnavailable:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

package ipc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mymonad/aura/pkg/aura"
)

var kindCodes = map[aura.Error]codes.Code{
	aura.ErrAlreadyRegistered:   codes.AlreadyExists,
	aura.ErrNotRegistered:       codes.NotFound,
	aura.ErrNotFound:            codes.NotFound,
	aura.ErrInvalidCommitment:   codes.InvalidArgument,
	aura.ErrInvalidScore:        codes.InvalidArgument,
	aura.ErrInvalidOwner:        codes.InvalidArgument,
	aura.ErrSelfMatch:           codes.InvalidArgument,
	aura.ErrInvalidProof:        codes.InvalidArgument,
	aura.ErrNotParticipant:      codes.PermissionDenied,
	aura.ErrUnauthorized:        codes.PermissionDenied,
	aura.ErrInactiveParticipant: codes.FailedPrecondition,
	aura.ErrPaused:              codes.FailedPrecondition,
}

// toStatus converts a ledger error into a gRPC status. The message keeps
// the error kind as its prefix so the client can restore it.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if kind, ok := aura.KindOf(err); ok {
		return status.Error(kindCodes[kind], err.Error())
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// fromStatus restores the ledger error carried by a gRPC status.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	if kind, ok := aura.ParseError(msg); ok {
		detail := strings.TrimPrefix(strings.TrimPrefix(msg, string(kind)), ":")
		detail = strings.TrimSpace(detail)
		if detail == "" {
			return kind
		}
		return fmt.Errorf("%w: %s", kind, detail)
	}
	return err
}

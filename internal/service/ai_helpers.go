package service

import (
	"context"
	"errors"

	"github.com/noah-isme/qna-go-api/internal/apperror"
	"github.com/noah-isme/qna-go-api/pkg/ai"
)

// StreamOpener is the part of ai.Registry the services depend on.
type StreamOpener interface {
	Open(ctx context.Context, name string, req ai.Request) (ai.Stream, ai.Provider, error)
}

// openStream opens a provider stream and translates registry failures into domain errors.
func openStream(ctx context.Context, opener StreamOpener, providerName string, req ai.Request) (ai.Stream, ai.Provider, error) {
	if opener == nil {
		return nil, nil, apperror.Validation("Unsupported AI provider", ai.ErrProviderNotConfigured.Error())
	}

	stream, provider, err := opener.Open(ctx, providerName, req)
	switch {
	case err == nil:
		return stream, provider, nil
	case errors.Is(err, ai.ErrUnknownProvider), errors.Is(err, ai.ErrProviderNotConfigured):
		return nil, nil, apperror.Validation("Unsupported AI provider", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return nil, nil, apperror.Timeout()
	default:
		return nil, nil, apperror.Upstream("AI provider failed", err)
	}
}

func modelName(requested string, provider ai.Provider) string {
	if requested != "" || provider == nil {
		return requested
	}
	return provider.DefaultModel()
}

// Package disabled is the default chat backend. Every completion fails
// with ErrDisabled, which routes surface as 503 so the rest of the
// gateway stays usable without an upstream model.
package disabled

import (
	"context"

	registrychat "github.com/onlymatt/gateway/internal/registry/chat"
)

func init() {
	registrychat.Register(registrychat.Plugin{
		Name: "disabled",
		Loader: func(ctx context.Context) (registrychat.Completer, error) {
			return Completer{}, nil
		},
	})
}

// Completer rejects every request.
type Completer struct{}

func (Completer) Complete(ctx context.Context, req registrychat.Request) (string, error) {
	return "", registrychat.ErrDisabled
}

var _ registrychat.Completer = Completer{}

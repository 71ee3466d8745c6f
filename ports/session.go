package ports

import (
	"context"

	"github.com/dshuvalov/jumper-challenge/core"
)

// Session is the per-request capability over the client's session state.
// Values are mutated in place and only persisted by Save.
type Session interface {
	Values() *core.Session
	Save(ctx context.Context) error
	Destroy(ctx context.Context) error
}

package output

import (
	"context"

	"browser-agent/internal/domain/entity"
)

// Dispatcher relays one action to whatever owns the active page and returns
// its result verbatim. Transport failures come back as failed results.
type Dispatcher interface {
	Dispatch(ctx context.Context, action entity.Action) entity.ActionResult
}

package output

import (
	"context"

	"browser-agent/internal/domain/entity"
	"browser-agent/internal/domain/grammar"
)

// PageExecutor applies one parsed action to the page it owns. Execute never
// returns an error: failures are reported through the result.
type PageExecutor interface {
	Execute(ctx context.Context, action grammar.Action) entity.ActionResult
}

// TargetLocator finds the executor bound to the currently active page.
// It returns *entity.NoActiveTargetError when no page is reachable.
type TargetLocator interface {
	ActiveTarget(ctx context.Context) (PageExecutor, error)
}

type PageSnapshot struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	Screenshot []byte `json:"screenshot,omitempty"`
}

type SnapshotOptions struct {
	Screenshot bool
}

// PageInspector captures the state of the active page for diagnostics.
type PageInspector interface {
	Snapshot(ctx context.Context, opts SnapshotOptions) (*PageSnapshot, error)
}

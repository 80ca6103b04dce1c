package entity

type DirectiveKind string

const (
	DirectiveAdvance     DirectiveKind = "advance"
	DirectiveRequestMore DirectiveKind = "request_more"
	DirectiveHalt        DirectiveKind = "halt"
)

type HaltReason string

const (
	HaltDone    HaltReason = "done"
	HaltError   HaltReason = "error"
	HaltStopped HaltReason = "stopped"
)

// Directive tells the sequencer what to do after a result. Advance may carry
// a new batch to append to the queue; RequestMore carries the feedback text
// handed to the planner.
type Directive struct {
	Kind    DirectiveKind
	Actions []Action
	Context string
	Reason  HaltReason
	Error   string
}

func Advance(next ...Action) Directive {
	return Directive{Kind: DirectiveAdvance, Actions: next}
}

func RequestMore(feedback string) Directive {
	return Directive{Kind: DirectiveRequestMore, Context: feedback}
}

func Halt(reason HaltReason, errMsg string) Directive {
	return Directive{Kind: DirectiveHalt, Reason: reason, Error: errMsg}
}

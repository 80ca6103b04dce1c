package entity

// ActionResult is the outcome of one execution attempt. Error is set iff
// Success is false.
type ActionResult struct {
	Success   bool           `json:"success"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Kind      ErrorKind      `json:"kind,omitempty"`
	Simulated bool           `json:"simulated,omitempty"`
}

func Succeeded(data map[string]any) ActionResult {
	return ActionResult{Success: true, Data: data}
}

func Failure(err error) ActionResult {
	if err == nil {
		return ActionResult{Success: false, Error: "unknown error", Kind: KindExecution}
	}
	return ActionResult{Success: false, Error: err.Error(), Kind: KindOf(err)}
}

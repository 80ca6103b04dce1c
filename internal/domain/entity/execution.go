package entity

type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// ExecutionStatus is a read-only snapshot of the sequencer state.
type ExecutionStatus struct {
	Running       bool     `json:"running"`
	CurrentIndex  int      `json:"currentIndex"`
	CurrentAction *Action  `json:"currentAction"`
	Progress      Progress `json:"progress"`
	Actions       []Action `json:"actions,omitempty"`
}

package compliance

type SweepResponse struct {
	AsOf         string   `json:"as_of,omitempty"`         // Sweep date, YYYY-MM-DD
	Scanned      int      `json:"scanned"`                 // Overdue loans handed to the workers
	PenalizedIDs []string `json:"penalized_ids,omitempty"` // Loans that received the late penalty
	DefaultedIDs []string `json:"defaulted_ids,omitempty"` // Loans moved to DEFAULTED
	FailedIDs    []string `json:"failed_ids,omitempty"`    // Loans whose transaction failed and were skipped
	ErrorMsg     string   `json:"error,omitempty"`         // First error seen during the sweep
	Message      string   `json:"message,omitempty"`
}

func (r *SweepResponse) SetError(err error) {
	if err != nil {
		r.ErrorMsg = err.Error()
	}
}

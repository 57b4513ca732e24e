package model

// Degradation records a non-fatal failure that reduced what a run covers.
type Degradation struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
	// Dropped counts items discarded by the stage, if any.
	Dropped int `json:"dropped,omitempty"`
}

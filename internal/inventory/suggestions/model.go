package suggestions

import "time"

// Suggestion is one ranked entry: read-only, never consulted for stock
// decisions.
type Suggestion struct {
	ToolCode string  `json:"tool_code"`
	ToolName string  `json:"tool_name"`
	Score    float64 `json:"score"`
}

// Snapshot is an immutable trained ranking. The service swaps whole
// snapshots atomically; a snapshot is never mutated after publication.
type Snapshot struct {
	Version   int64
	TrainedAt time.Time
	BySubject map[int64][]Suggestion
	Global    []Suggestion
}

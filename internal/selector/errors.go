package selector

import "fmt"

// Pipeline stage names, as reported by NoViableSpreadsError.
const (
	StageEnumerate = "enumerate"
	StagePrice     = "price"
	StageRisk      = "risk"
)

// InsufficientDataError reports an input too thin to scan: fewer than two
// valid strikes after normalization, or a missing market context field.
// It is a result value, not a fault; callers get an empty recommendation
// list alongside it.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return "insufficient data: " + e.Reason
}

// NoViableSpreadsError reports that candidates existed but every one was
// filtered out, and names the stage that emptied the funnel. Routine in
// illiquid or expensive markets.
type NoViableSpreadsError struct {
	Stage      string
	Candidates int
}

func (e *NoViableSpreadsError) Error() string {
	return fmt.Sprintf("no viable spreads: all %d candidates filtered at %s stage", e.Candidates, e.Stage)
}

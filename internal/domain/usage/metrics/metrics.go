package metrics

// Metrics holds LLM usage for a time period.
type Metrics struct {
	completionRequests int
	tokens             int
	costMillidollars   int
}

// New creates a Metrics snapshot.
func New(requests, tokens, costMillidollars int) Metrics {
	return Metrics{completionRequests: requests, tokens: tokens, costMillidollars: costMillidollars}
}

// CompletionRequests returns the number of LLM completion calls.
func (m Metrics) CompletionRequests() int { return m.completionRequests }

// Tokens returns the total tokens consumed.
func (m Metrics) Tokens() int { return m.tokens }

// CostMillidollars returns cost in millicents (1 USD = 1000).
func (m Metrics) CostMillidollars() int { return m.costMillidollars }

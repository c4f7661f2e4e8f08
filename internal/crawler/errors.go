package crawler

import "errors"

var (
	// ErrBudgetExhausted is wrapped into a transport failure when an
	// operation needs another request but the shared retry budget has
	// no attempts or time left. Seen by targets whose HEAD consumed the
	// whole budget before a 405 fallback GET could run.
	ErrBudgetExhausted = errors.New("retry budget exhausted")

	// ErrUnknownStrategy is returned by NewStrategy for a kind it does
	// not recognize.
	ErrUnknownStrategy = errors.New("unknown fetch strategy")
)

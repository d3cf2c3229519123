package fraud

import "errors"

var (
	errNoCounter = errors.New("no risk counter configured")
	errNoUser    = errors.New("draft has no originating user")
	errNoHistory = errors.New("no transaction history configured")
)

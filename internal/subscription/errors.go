package subscription

import "errors"

// ErrEmptySubscription is returned by Subscribe when called with zero
// stream names, matching the InvalidArgument behavior required by
// SPEC_FULL.md sections 4.6 and 6.
var ErrEmptySubscription = errors.New("subscribe requires at least one stream name")

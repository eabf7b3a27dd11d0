package speck

import "errors"

// errBitBudgetMet unwinds the sorting/refinement recursion cleanly once
// a rate-mode bit budget (encode) or the available bit count (decode)
// has been reached. It never escapes the package: callers of Encode and
// Decode never see it.
var errBitBudgetMet = errors.New("speck: bit budget met")

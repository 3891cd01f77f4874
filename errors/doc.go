// Package errors provides standardized error handling for the streamkit
// protocol core and its operators.
//
// # Error Classification
//
// Every failure in a subscription chain falls into one of four classes:
//
//   - ClassUpstream: terminal errors delivered by an upstream producer. These
//     always propagate downstream unless intercepted by an error-substitution
//     operator (flow.OnErrorReturn, flow.OnErrorResume, flow.MapError).
//   - ClassCallback: faults raised inside user-supplied transform, predicate,
//     or consumer callbacks. Operators catch these at their boundary and
//     convert them into a terminal error signal; a panic never escapes a
//     subscription chain.
//   - ClassOverflow: raised by a bounded buffer or the error overflow strategy
//     when producer emission exceeds capacity or outstanding demand.
//   - ClassMisuse: protocol programming errors such as non-positive demand
//     requests, double subscription, or signals after a terminal signal.
//     These are reported immediately and loudly, never silently swallowed.
//
// # Usage
//
// Wrap errors at operator boundaries with classification:
//
//	if err := fn(item); err != nil {
//	    return errors.WrapCallback(err, "Map", "OnItem", "transform")
//	}
//
// Check classification when handling:
//
//	if errors.IsOverflow(err) {
//	    // buffer capacity exceeded
//	}
//
// Convert recovered panics at the operator boundary:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        err = errors.Recovered(r, "Filter", "OnItem")
//	    }
//	}()
//
// # Sentinel Errors
//
// The package exports sentinel variables (ErrOverflow, ErrInvalidDemand,
// ErrDoubleSubscription, ...) compatible with errors.Is, and the StreamError
// wrapper compatible with errors.As for retrieving classification and the
// operator context in which the failure occurred.
package errors

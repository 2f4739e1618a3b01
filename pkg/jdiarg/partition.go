package jdiarg

// Partition splits a heterogeneous argument sequence into request-args,
// event-args, and unknown (implementation-defined) values, preserving
// per-bucket order. Order among request-args matters: some native filter
// combinations are order-sensitive.
func Partition(extraArgs []any) (reqArgs []RequestArg, evtArgs []EventArg, unknown []any) {
	for _, a := range extraArgs {
		switch v := a.(type) {
		case RequestArg:
			reqArgs = append(reqArgs, v)
		case EventArg:
			evtArgs = append(evtArgs, v)
		default:
			unknown = append(unknown, a)
		}
	}
	return reqArgs, evtArgs, unknown
}

// FindUniqueIDProperty returns the user-supplied unique-id property, if
// present. Open Question (spec.md §9): when the caller supplies their own
// unique-id, it takes precedence and no fresh id is generated.
func FindUniqueIDProperty(reqArgs []RequestArg) (UniqueIDProperty, bool) {
	for _, a := range reqArgs {
		if p, ok := a.(UniqueIDProperty); ok {
			return p, true
		}
	}
	return UniqueIDProperty{}, false
}

// StripUniqueIDProperty removes the unique-id property from a request-arg
// set, used when echoing a request's args back to callers (list/get must
// not leak the correlation id) and when comparing arg-sets for
// memoization invalidation, which is modulo the unique-id property.
func StripUniqueIDProperty(reqArgs []RequestArg) []RequestArg {
	out := make([]RequestArg, 0, len(reqArgs))
	for _, a := range reqArgs {
		if _, ok := a.(UniqueIDProperty); ok {
			continue
		}
		out = append(out, a)
	}
	return out
}

package social

// runOptimistic is the shared shape of every optimistic action: apply the
// local patch first, then issue the request; adopt the server's
// authoritative result on success, revert to the pre-action snapshot on
// failure. Callers never end up in a hybrid state.
func runOptimistic[R any](apply, revert func(), request func() (R, error), adopt func(R)) (R, error) {
	apply()

	result, err := request()
	if err != nil {
		revert()
		var zero R
		return zero, err
	}

	adopt(result)
	return result, nil
}

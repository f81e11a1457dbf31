package house

// OpenRound reserves the next round number of a round-based house. The
// house must accept wagers.
func (e *Engine) OpenRound(game string) (uint64, error) {
	h, err := e.Load(game)
	if err != nil {
		return 0, err
	}
	if err := e.guard(h); err != nil {
		return 0, err
	}
	h.TotalRounds++
	if err := e.state.HousePut(h); err != nil {
		return 0, err
	}
	return h.TotalRounds, nil
}

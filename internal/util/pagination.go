package util

// Calculate normalizes 1-based paging. A non-positive size falls back to
// def and anything above max is capped.
func Calculate(page, size, def, max int) (p, limit, from int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = def
	}
	if size > max {
		size = max
	}
	return page, size, (page - 1) * size
}

package search

// generation mints request tokens. Every asynchronous operation captures the
// token at issuance and applies its result only if it is still the latest;
// this gives last-write-wins by issuance order regardless of completion order.
type generation struct {
	latest uint64
}

func (g *generation) next() uint64 {
	g.latest++
	return g.latest
}

// invalidate makes every previously issued token stale.
func (g *generation) invalidate() {
	g.latest++
}

func (g *generation) current(token uint64) bool {
	return token == g.latest
}

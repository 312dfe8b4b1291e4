// Package filter selects capture records with classic BPF programs.
package filter

// Filter decides whether a raw Ethernet frame is kept.
type Filter interface {
	Match(frame []byte) (bool, error)
}

// Chain keeps a frame only when every filter matches and counts the
// outcome.
type Chain struct {
	filters []Filter
	matched int
	dropped int
}

// NewChain returns a chain over filters. An empty chain matches everything.
func NewChain(filters ...Filter) *Chain {
	all := make([]Filter, len(filters))
	copy(all, filters)
	return &Chain{filters: all}
}

// Match runs the filters in order and stops at the first rejection.
func (c *Chain) Match(frame []byte) (bool, error) {
	for _, f := range c.filters {
		ok, err := f.Match(frame)
		if err != nil {
			return false, err
		}
		if !ok {
			c.dropped++
			return false, nil
		}
	}
	c.matched++
	return true, nil
}

// Counts returns how many frames were matched and dropped so far.
func (c *Chain) Counts() (matched, dropped int) {
	return c.matched, c.dropped
}

package gesture

import "time"

// MaxCooldownEntries bounds the number of actions tracked by a CooldownTable.
const MaxCooldownEntries = 256

// CooldownTable remembers when each action last fired.
type CooldownTable struct {
	last map[string]time.Time
}

// NewCooldownTable creates an empty table.
func NewCooldownTable() *CooldownTable {
	return &CooldownTable{last: make(map[string]time.Time)}
}

// LastFired returns the last fire time recorded for action.
func (c *CooldownTable) LastFired(action string) (time.Time, bool) {
	t, ok := c.last[action]
	return t, ok
}

// Ready reports whether action may fire at now given the cooldown.
func (c *CooldownTable) Ready(action string, now time.Time, cooldown time.Duration) bool {
	last, ok := c.last[action]
	if !ok {
		return true
	}
	return now.Sub(last) >= cooldown
}

// Record marks action as fired at now. When the table is full the entry
// that fired longest ago is dropped first.
func (c *CooldownTable) Record(action string, now time.Time) {
	if _, ok := c.last[action]; !ok && len(c.last) >= MaxCooldownEntries {
		c.pruneOldest()
	}
	c.last[action] = now
}

// Len returns the number of tracked actions.
func (c *CooldownTable) Len() int {
	return len(c.last)
}

func (c *CooldownTable) pruneOldest() {
	var (
		oldest string
		at     time.Time
		found  bool
	)
	for action, t := range c.last {
		if !found || t.Before(at) {
			oldest, at, found = action, t, true
		}
	}
	if found {
		delete(c.last, oldest)
	}
}

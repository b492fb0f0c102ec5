package client

import "sync"

// Kind names one family of cached query results.
type Kind int

const (
	KindDebtAccounts Kind = iota
	KindDebtSchedule
	KindMonthlyPlans
	KindPlanActual
	KindPlannedIncomes
	KindPlannedExpenses
	KindPlannedSavings
)

func (k Kind) String() string {
	switch k {
	case KindDebtAccounts:
		return "debt_accounts"
	case KindDebtSchedule:
		return "debt_schedule"
	case KindMonthlyPlans:
		return "monthly_plans"
	case KindPlanActual:
		return "plan_actual"
	case KindPlannedIncomes:
		return "planned_incomes"
	case KindPlannedExpenses:
		return "planned_expenses"
	case KindPlannedSavings:
		return "planned_savings"
	}
	return "unknown"
}

// Key identifies a cached query. ID is the debt or plan the query is scoped
// to, and empty for the unscoped lists.
type Key struct {
	Kind Kind
	ID   string
}

// Cache holds validated response bodies until a mutation invalidates them.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key][]byte
}

func NewCache() *Cache {
	return &Cache{entries: make(map[Key][]byte)}
}

func (c *Cache) Get(key Key) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cache) Put(key Key, v []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
}

// InvalidateKind drops every key of the given kinds, whatever their ID.
func (c *Cache) InvalidateKind(kinds ...Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		for _, kind := range kinds {
			if k.Kind == kind {
				delete(c.entries, k)
				break
			}
		}
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

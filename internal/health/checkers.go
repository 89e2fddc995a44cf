// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
)

// FuncChecker adapts an error-returning probe. A non-nil error is unhealthy.
type FuncChecker struct {
	name  string
	check func(ctx context.Context) error
}

func NewFuncChecker(name string, check func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, check: check}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult {
	if err := c.check(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// BreakerChecker reports an upstream circuit breaker. An open breaker is
// degraded: cached content still serves while the catalog is unreachable.
type BreakerChecker struct {
	name  string
	state func() string
}

func NewBreakerChecker(name string, state func() string) *BreakerChecker {
	return &BreakerChecker{name: name, state: state}
}

func (c *BreakerChecker) Name() string { return c.name }

func (c *BreakerChecker) Check(context.Context) CheckResult {
	switch s := c.state(); s {
	case "closed":
		return CheckResult{Status: StatusHealthy, Message: "circuit closed"}
	case "half-open":
		return CheckResult{Status: StatusDegraded, Message: "circuit half-open, probing upstream"}
	default:
		return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("circuit %s", s)}
	}
}

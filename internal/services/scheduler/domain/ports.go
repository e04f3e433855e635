package domain

import "context"

// RunnerPort drives jobs on demand (admin endpoint) or under a loop
// (background process)
type RunnerPort interface {
	// Run executes a single named job under its advisory lock
	Run(ctx context.Context, job JobName) (Result, error)
	// RunAll executes every known job, one advisory lock at a time
	RunAll(ctx context.Context) (map[JobName]Result, error)
}

// Ports is the full scheduler surface
type Ports interface {
	RunnerPort
}

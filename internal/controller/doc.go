// Package controller owns the serial link to a Rego 6xx heat pump and drives
// the scheduler that multiplexes endpoints over it.
//
// Lifecycle:
//
//	c, err := controller.New(controller.Options{Link: link, Config: cfg.Scheduler})
//	if err := c.RegisterFromConfig(cfg); err != nil { ... }
//	if err := c.Setup(); err != nil { ... }
//	err = c.Run(ctx) // ticks until ctx is cancelled, then closes the link
//
// Endpoints are registered before Setup. Setup seals the registry, so the
// endpoint set is fixed for the lifetime of the process. All serial I/O
// happens on the goroutine that calls Run.
package controller

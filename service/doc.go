// Package service is the runtime for one mesh service instance. It serves
// the instance's HTTP endpoints, registers the instance with the registry on
// start, heartbeats while running, and deregisters on stop.
//
//	svc, err := service.New(service.Config{Name: "users", Port: 9000}, reg, nil)
//	svc.Engine().GET("/list", listUsers)
//	err = svc.Start(ctx)
//	defer svc.Stop(ctx)
//
// Every instance exposes /health (with dependency checks against the
// registry), /info, and /metrics.
package service

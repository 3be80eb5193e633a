// Package auth provides JWT token generation and validation for gateway
// and service-to-service authentication.
//
//	svc, err := auth.NewService(&auth.Config{Secret: "..."})
//	token, err := svc.Generate("users", "mesh")
//	claims, err := svc.Parse(token)
package auth

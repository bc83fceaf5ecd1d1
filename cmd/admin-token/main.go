// Command admin-token mints a bearer token for the admin correction
// endpoints. Run it with the same signing key and issuer the server uses.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"attendance/internal/auth"
	"attendance/internal/config"
)

func main() {
	cfg := config.Load()

	subject := flag.String("subject", "admin", "token subject")
	ttl := flag.Duration("ttl", cfg.AccessTTL, "token lifetime")
	flag.Parse()

	token, exp, err := auth.Issue(*subject, auth.RoleAdmin, cfg.JWTIssuer, cfg.JWTSigningKey, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Println(token)
	fmt.Printf("expires: %s\n", exp.Format(time.RFC3339))
}

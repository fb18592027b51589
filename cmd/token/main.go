// token issues bearer tokens for clients of the action endpoint and hashes the reset secret
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pot-code/lessonrelay/internal/infrastructure/auth"
	"github.com/spf13/pflag"
)

func main() {
	log.SetFlags(0)
	var (
		secret    = pflag.String("secret", os.Getenv("LESSONRELAY_SECURITY_JWT_SECRET"), "JWT secret shared with the server")
		method    = pflag.String("method", "HS256", "JWT signing method, HS256 or HS512")
		uid       = pflag.String("uid", "", "user id carried by the token")
		name      = pflag.String("name", "", "display name carried by the token")
		ttl       = pflag.Duration("ttl", 24*time.Hour, "token lifetime")
		hashReset = pflag.String("hash-reset-secret", "", "print the bcrypt hash of this reset secret and exit")
	)
	pflag.Parse()

	if *hashReset != "" {
		hash, err := auth.HashSecret(*hashReset)
		if err != nil {
			log.Fatalf("Failed to hash reset secret: %s", err)
		}
		fmt.Println(hash)
		return
	}

	if *secret == "" || *uid == "" {
		pflag.Usage()
		log.Fatal("--secret and --uid are required")
	}
	if *method != "HS256" && *method != "HS512" {
		log.Fatalf("unsupported method: %s", *method)
	}
	if *name == "" {
		*name = *uid
	}

	token, err := auth.NewJWTUtil(*method, *secret, "", *ttl).GenerateTokenStr(*uid, *name)
	if err != nil {
		log.Fatalf("Failed to sign token: %s", err)
	}
	fmt.Println(token)
}

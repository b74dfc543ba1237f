// Command tokengen mints signed development tokens shaped like the sandbox
// authority's credential responses, for exercising the gateway without a
// live authority.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	var (
		secret  = flag.String("secret", os.Getenv("TOKENGEN_SECRET"), "HMAC signing secret (or TOKENGEN_SECRET)")
		baseURL = flag.String("base-url", "https://auth.example", "authority base URL embedded in the jti")
		cid     = flag.String("cid", "", "credential id (random UUID when empty)")
		status  = flag.String("status", "ACCEPTED", "credential status claim")
		subject = flag.String("sub", "did:example:holder", "holder DID subject claim")
		ttl     = flag.Duration("ttl", time.Hour, "token lifetime")
	)
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "tokengen: a signing secret is required (-secret or TOKENGEN_SECRET)")
		os.Exit(2)
	}

	credentialID := *cid
	if credentialID == "" {
		credentialID = uuid.NewString()
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"jti":    strings.TrimRight(*baseURL, "/") + "/api/credential/" + credentialID,
		"sub":    *subject,
		"status": strings.ToUpper(strings.TrimSpace(*status)),
		"iat":    now.Unix(),
		"exp":    now.Add(*ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(*secret))
	if err != nil {
		fmt.Fprintln(os.Stderr, "tokengen: sign token:", err)
		os.Exit(1)
	}

	fmt.Println(signed)
}

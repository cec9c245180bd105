// Package main provides a CLI tool for generating and inspecting lostfound
// access tokens. Tokens use the dev signing key unless -key is given and will
// NOT work against a server with a real key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"lostfound/internal/identity/local"
	id "lostfound/pkg/domain"
)

const (
	// Dev signing key - matches config.go when JWT_SIGNING_KEY is not set
	devSigningKey = "dev-secret-key-change-in-production"

	defaultIssuer   = "lostfound"
	defaultTokenTTL = time.Hour
)

type tokenOutput struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Claims    map[string]any    `json:"claims,omitempty"`
	Usage     map[string]string `json:"usage,omitempty"`
}

func main() {
	accessCmd := flag.NewFlagSet("access", flag.ExitOnError)
	inspectCmd := flag.NewFlagSet("inspect", flag.ExitOnError)

	accessUserID := accessCmd.String("user-id", "", "User ID (UUID). Generated if empty.")
	accessEmail := accessCmd.String("email", "finder@campus.edu", "Email claim")
	accessTTL := accessCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	accessKey := accessCmd.String("key", devSigningKey, "HS256 signing key")
	accessJSON := accessCmd.Bool("json", false, "Output as JSON")

	inspectKey := inspectCmd.String("key", devSigningKey, "HS256 signing key")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "access":
		_ = accessCmd.Parse(os.Args[2:])
		generateAccessToken(*accessUserID, *accessEmail, *accessKey, *accessTTL, *accessJSON)
	case "inspect":
		_ = inspectCmd.Parse(os.Args[2:])
		if inspectCmd.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "Usage: tokengen inspect [-key KEY] <token>")
			os.Exit(1)
		}
		inspectToken(inspectCmd.Arg(0), *inspectKey)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate test tokens for the lostfound API

WARNING: The default key is the dev signing key. Only use for local development.

Usage:
  tokengen <command> [flags]

Commands:
  access    Generate an access token (JWT)
  inspect   Validate a token and print its claims

Examples:
  # Token for an existing profile
  tokengen access -user-id "550e8400-e29b-41d4-a716-446655440000" -email alice@campus.edu

  # Check a token issued by a running server
  tokengen inspect eyJhbGciOi...

The server re-resolves the role from the profile on every request, so the
user id must belong to an active profile for the token to be accepted.`)
}

func generateAccessToken(userID, email, key string, ttl time.Duration, jsonOutput bool) {
	uid := parseOrGenerateUserID(userID)
	svc := local.NewTokenService(key, defaultIssuer, ttl)

	token, jti, expiresAt, err := svc.Issue(context.Background(), uid, email)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			ExpiresAt: expiresAt,
			Claims: map[string]any{
				"user_id": uid.String(),
				"email":   email,
				"jti":     jti,
			},
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}
	fmt.Println("Access Token (JWT)")
	fmt.Println("==================")
	fmt.Printf("Expires At: %s\n", expiresAt.Format(time.RFC3339))
	fmt.Printf("User ID:    %s\n", uid)
	fmt.Printf("Email:      %s\n", email)
	fmt.Printf("JTI:        %s\n", jti)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/notifications")
}

func inspectToken(token, key string) {
	claims, err := local.NewTokenService(key, defaultIssuer, defaultTokenTTL).Validate(token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Token rejected: %v\n", err)
		os.Exit(1)
	}
	out := tokenOutput{
		Claims: map[string]any{
			"user_id": claims.UserID,
			"email":   claims.Email,
			"jti":     claims.ID,
			"issuer":  claims.Issuer,
		},
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	printJSON(out)
}

func parseOrGenerateUserID(input string) id.UserID {
	if input == "" {
		return id.NewUserID()
	}
	parsed, err := uuid.Parse(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid user-id UUID: %s\n", input)
		os.Exit(1)
	}
	return id.UserID(parsed)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

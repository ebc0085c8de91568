//go:build ignore

// Command generate-key prints fresh secrets for a deployment: an
// ENCRYPTION_KEY for sealing generated passwords and a wizard step token
// secret. Run it with `go run scripts/generate-key.go`.
package main

import (
	"encoding/base64"
	"fmt"
	"log"

	"github.com/annotation-study/registration/internal/crypto"
	"github.com/annotation-study/registration/internal/wizard"
)

func main() {
	key, err := crypto.GenerateKey()
	if err != nil {
		log.Fatal(err)
	}
	secret, err := wizard.GenerateSecret()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("==========================================================")
	fmt.Println("Deployment secrets")
	fmt.Println("==========================================================")
	fmt.Printf("\nENCRYPTION_KEY=%s\n", base64.StdEncoding.EncodeToString(key))
	fmt.Printf("REG_WIZARD_TOKEN_SECRET=%s\n", secret)
	fmt.Println("\nKeep ENCRYPTION_KEY safe: sealed passwords cannot be")
	fmt.Println("recovered with cmd/unseal once it is lost.")
	fmt.Println("==========================================================")
}

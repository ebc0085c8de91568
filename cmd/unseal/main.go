// Package main recovers a generated platform password from the password_sealed
// column of a registration record. Administrators need it when an account
// could not be created automatically and has to be set up by hand with the
// credentials the registrant already received.
//
// Usage:
//
//	ENCRYPTION_KEY=... unseal <sealed-value>
//	ENCRYPTION_KEY=... unseal < sealed-values.txt
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/annotation-study/registration/internal/crypto"
)

func main() {
	key := os.Getenv("ENCRYPTION_KEY")
	if key == "" {
		log.Fatal("ENCRYPTION_KEY environment variable must be set")
	}
	sealer, err := crypto.FromKeyMaterial(key)
	if err != nil {
		log.Fatalf("Invalid ENCRYPTION_KEY: %v", err)
	}

	if len(os.Args) > 1 {
		for _, sealed := range os.Args[1:] {
			if err := unseal(sealer, sealed, os.Stdout); err != nil {
				log.Fatal(err)
			}
		}
		return
	}

	if err := unsealLines(sealer, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// unsealLines opens one sealed value per non-empty input line
func unsealLines(sealer *crypto.Sealer, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := unseal(sealer, line, w); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func unseal(sealer *crypto.Sealer, sealed string, w io.Writer) error {
	plain, err := sealer.Open(sealed)
	if err != nil {
		return fmt.Errorf("failed to unseal %.12s...: %w", sealed, err)
	}
	_, err = fmt.Fprintln(w, plain)
	return err
}

// Package main is a diagnostic tool for the annotation platform connection.
// It loads the regular configuration, pings the remote API with the admin
// account and checks that every configured language has its project. The
// binary exits non-zero on any problem so it can gate a deployment: a missing
// project means every registrant for that language would need manual setup.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/annotation-study/registration/internal/config"
	"github.com/annotation-study/registration/internal/languages"
	"github.com/annotation-study/registration/internal/platform"
)

// projectLister is the part of the platform client the check needs
type projectLister interface {
	Ping(ctx context.Context) bool
	ListProjects(ctx context.Context) []platform.Project
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	table, err := languages.New(cfg.Languages)
	if err != nil {
		log.Fatalf("Invalid language table: %v", err)
	}

	client := platform.NewClient(platform.Options{
		BaseURL:        cfg.Platform.URL,
		Username:       cfg.Platform.AdminUser,
		Password:       cfg.Platform.AdminPassword,
		PingTimeout:    cfg.Platform.PingTimeout,
		RequestTimeout: cfg.Platform.RequestTimeout,
	})

	fmt.Printf("Platform: %s\n", client.BaseURL())
	if missing := check(context.Background(), client, table, os.Stdout); missing > 0 {
		os.Exit(1)
	}
}

// check prints one line per language and returns the number of problems
func check(ctx context.Context, client projectLister, table *languages.Table, w io.Writer) int {
	if !client.Ping(ctx) {
		fmt.Fprintln(w, "UNREACHABLE  remote API did not answer; check platform.url and remote-api.enabled")
		return 1
	}
	fmt.Fprintln(w, "OK           remote API reachable")

	ids := map[string]int64{}
	for _, p := range client.ListProjects(ctx) {
		ids[p.Name] = p.ID
	}

	problems := 0
	for _, l := range table.All() {
		if id, ok := ids[l.Project]; ok {
			fmt.Fprintf(w, "OK           %-12s project %q (id %d)\n", l.Name, l.Project, id)
			continue
		}
		fmt.Fprintf(w, "MISSING      %-12s project %q not found (names are case-sensitive)\n", l.Name, l.Project)
		problems++
	}
	return problems
}

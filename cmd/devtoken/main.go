// Command devtoken prints a bearer token for local testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/app"
)

func main() {
	var (
		userID int64
		roles  string
		ttl    time.Duration
	)
	flag.Int64Var(&userID, "user", 2, "user id (token subject)")
	flag.StringVar(&roles, "roles", "manager", "comma separated role names")
	flag.DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	app.LoadEnv()
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET_KEY"))
	if secret == "" {
		secret = "defaultsecret"
	}

	var names []string
	tbl := access.DefaultRoleTable()
	known := map[string]bool{}
	for _, r := range tbl.RoleNames() {
		known[r] = true
	}
	for _, r := range strings.Split(roles, ",") {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" {
			continue
		}
		if !known[r] {
			fmt.Fprintf(os.Stderr, "warning: role %q is not in the default role table\n", r)
		}
		names = append(names, r)
	}

	tok, err := access.IssueToken(secret, userID, names, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

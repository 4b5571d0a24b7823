// Command restore creates a new activity in a course from a backup archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/app"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/backup"
)

// userMap parses "old=new" pairs, repeatable.
type userMap map[int64]int64

func (m userMap) String() string {
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, fmt.Sprintf("%d=%d", k, v))
	}
	return strings.Join(parts, ",")
}

func (m userMap) Set(v string) error {
	oldRaw, newRaw, ok := strings.Cut(strings.TrimSpace(v), "=")
	if !ok {
		return fmt.Errorf("expected old=new, got %q", v)
	}
	oldID, err := strconv.ParseInt(oldRaw, 10, 64)
	if err != nil {
		return err
	}
	newID, err := strconv.ParseInt(newRaw, 10, 64)
	if err != nil {
		return err
	}
	m[oldID] = newID
	return nil
}

func main() {
	var (
		courseID int64
		userInfo bool
		in       string
		asUser   int64
	)
	users := userMap{}
	flag.Int64Var(&courseID, "course", 0, "target course id")
	flag.BoolVar(&userInfo, "userinfo", false, "restore evaluations, responses and their files")
	flag.StringVar(&in, "in", "", "backup archive to restore")
	flag.Int64Var(&asUser, "as", 2, "user id recorded as the operator")
	flag.Var(users, "map-user", "map a user id from the archive, old=new (repeatable; unmapped ids are kept)")
	flag.Parse()

	if courseID <= 0 || in == "" {
		fmt.Println("-course and -in are required")
		os.Exit(2)
	}
	data, err := os.ReadFile(in)
	if err != nil {
		fmt.Printf("read %s: %v\n", in, err)
		os.Exit(1)
	}
	archive, err := backup.ReadArchive(data)
	if err != nil {
		fmt.Printf("read archive: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	svc := application.Backup
	if len(users) > 0 {
		resolver := backup.MapResolver{}
		for _, ref := range archive.InfoRef.Users {
			resolver[ref.ID] = ref.ID
		}
		for k, v := range users {
			resolver[k] = v
		}
		svc = backup.NewService(application.DB, application.Log, application.Repos, application.Files, application.Events, resolver)
	}

	actx := access.WithCapabilities(ctx, asUser, access.CapRestore)
	res, err := svc.Restore(actx, courseID, archive, backup.RestoreOptions{UserInfo: userInfo})
	if err != nil {
		fmt.Printf("restore: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("restored activity %d into course %d (restore %s): %+v\n", res.Activity.ID, courseID, res.RestoreID, res.Summary)
}

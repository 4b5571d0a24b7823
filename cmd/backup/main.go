// Command backup writes one activity's backup archive to a file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/app"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/backup"
)

func main() {
	var (
		activityID int64
		userInfo   bool
		out        string
		asUser     int64
	)
	flag.Int64Var(&activityID, "activity", 0, "activity id to back up")
	flag.BoolVar(&userInfo, "userinfo", false, "include evaluations, responses and their files")
	flag.StringVar(&out, "out", "", "output file (default backup-<activity>.zip)")
	flag.Int64Var(&asUser, "as", 2, "user id recorded as the operator")
	flag.Parse()

	if activityID <= 0 {
		fmt.Println("-activity is required")
		os.Exit(2)
	}
	if out == "" {
		out = fmt.Sprintf("backup-%d.zip", activityID)
	}

	ctx := context.Background()
	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	actx := access.WithCapabilities(ctx, asUser, access.CapBackup)
	res, err := application.Backup.Backup(actx, activityID, backup.Settings{UserInfo: userInfo})
	if err != nil {
		fmt.Printf("backup: %v\n", err)
		os.Exit(1)
	}
	f, err := os.Create(out)
	if err != nil {
		fmt.Printf("create %s: %v\n", out, err)
		os.Exit(1)
	}
	if err := res.Archive.Write(f); err != nil {
		_ = f.Close()
		fmt.Printf("write %s: %v\n", out, err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Printf("close %s: %v\n", out, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (backup %s): %+v\n", out, res.Archive.Manifest.BackupID, res.Summary)
}

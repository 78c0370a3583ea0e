package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/aknight/ballast/internal/reliability"
	"github.com/aknight/ballast/internal/report"
)

// backupCmd ships database backups to an S3-compatible bucket.
type backupCmd struct {
	app     *app
	list    bool
	rotate  bool
	restore string
}

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "back up the database to an S3-compatible bucket" }
func (*backupCmd) Usage() string {
	return `ballast backup [-list] [-rotate] [-restore archive.tar.gz]

  Without flags, snapshots the database and uploads a tar.gz archive with
  checksum metadata. -list shows stored archives, -rotate applies the
  retention policy, -restore downloads and verifies an archive into the data
  directory (without touching the live database).

  Requires BALLAST_S3_* environment variables; see 'ballast flags'.
`
}

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "list", false, "list stored backups")
	f.BoolVar(&c.rotate, "rotate", false, "delete backups past the retention period")
	f.StringVar(&c.restore, "restore", "", "archive to download and verify")
}

func (c *backupCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if !c.app.cfg.Backup.Enabled() {
		return fail(fmt.Errorf("backup target not configured; set BALLAST_S3_ACCESS_KEY_ID, BALLAST_S3_SECRET_ACCESS_KEY and BALLAST_S3_BUCKET"))
	}

	store, err := reliability.NewS3Client(ctx, c.app.cfg.Backup, c.app.log)
	if err != nil {
		return fail(err)
	}

	db, err := c.app.openDB()
	if err != nil {
		return fail(err)
	}
	defer db.Close()

	backups := reliability.NewBackupService(db, store, c.app.cfg.DataDir, c.app.log)

	switch {
	case c.list:
		stored, err := backups.ListBackups(ctx)
		if err != nil {
			return fail(err)
		}
		fmt.Print(report.Backups(stored))

	case c.rotate:
		if err := backups.RotateOldBackups(ctx, c.app.cfg.Backup.RetentionDays); err != nil {
			return fail(err)
		}

	case c.restore != "":
		path, err := backups.Restore(ctx, c.restore, c.app.cfg.DataDir+"/restore")
		if err != nil {
			return fail(err)
		}
		fmt.Printf("Restored and verified: %s\n", path)

	default:
		archive, err := backups.CreateAndUpload(ctx)
		if err != nil {
			return fail(err)
		}
		fmt.Printf("Uploaded %s\n", archive)
	}
	return subcommands.ExitSuccess
}

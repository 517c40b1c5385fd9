package cmd

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/veloria/phototheque/config"
	"github.com/veloria/phototheque/internal/app"
	"github.com/veloria/phototheque/internal/reconcile"
)

var reconcileRepair bool

// reconcileCmd runs one record/file-store comparison pass and exits.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare the album records against the stored files",
	Run: func(cmd *cobra.Command, args []string) {
		RunReconcile()
	},
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileRepair, "repair", false, "delete orphaned files and folders and prune dangling entries")
	rootCmd.AddCommand(reconcileCmd)
}

func RunReconcile() {
	config.InitConfig()
	cfg := config.Get()

	container := app.NewContainer(cfg)
	if err := container.Init(); err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer container.Close()

	if err := container.AutoMigrate(); err != nil {
		log.Fatalf("Failed to auto migrate database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	scanner := reconcile.NewScanner(
		container.AlbumsRepo,
		container.GetStorageProvider(),
		cfg.ReconcileInterval,
		reconcileRepair,
	)

	report, err := scanner.Run(ctx)
	if err != nil {
		log.Fatalf("Reconciliation failed: %v", err)
	}

	if report.Clean() {
		log.Println("Stores are consistent, nothing to do")
		return
	}

	log.Printf("Found %s", report.Summary())
	for folder, names := range report.OrphanFiles {
		for _, name := range names {
			log.Printf("  orphaned file: %s/%s", folder, name)
		}
	}
	for folder, names := range report.MissingFiles {
		for _, name := range names {
			log.Printf("  missing file: %s/%s", folder, name)
		}
	}
	for _, dir := range report.OrphanDirs {
		log.Printf("  orphaned folder: %s", dir)
	}

	if reconcileRepair {
		log.Println("Repairs applied")
	} else {
		log.Println("Run with --repair to apply fixes")
	}
}

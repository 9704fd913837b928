package main

import (
	"context"
	"fmt"
	"os"

	"hivley/config"
	"hivley/internal/repository"
	"hivley/pkg/database"
	"hivley/pkg/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	log := logger.New(logger.DevelopmentMode)
	defer log.Sync()

	root := &cobra.Command{
		Use:          "hivley-migrate",
		Short:        "Hivley database tool",
		SilenceUsage: true,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Create or update all tables",
			RunE: withDB(func(ctx context.Context, db *gorm.DB) error {
				log.Infof("🚀 Running migrations UP...")
				if err := repository.InitSchema(db); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				log.Infof("✅ Migrations completed successfully!")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show connection status and row counts",
			RunE: withDB(func(ctx context.Context, db *gorm.DB) error {
				return showStatus(ctx, db, log)
			}),
		},
		&cobra.Command{
			Use:   "seed-dev",
			Short: "Seed sample profiles and conversations",
			RunE: withDB(func(ctx context.Context, db *gorm.DB) error {
				log.Infof("🌱 Seeding database (development mode)...")
				if err := repository.InitSchema(db); err != nil {
					return err
				}
				result, err := database.SeedDevelopment(ctx, db, nil, log)
				if err != nil {
					return fmt.Errorf("seeding failed: %w", err)
				}
				for _, p := range result.Profiles {
					log.Infof("   - %s <%s> (%s)", p.FullName, p.Email, p.Role)
				}
				return nil
			}),
		},
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Errorf("❌ %v", err)
		os.Exit(1)
	}
}

func withDB(run func(ctx context.Context, db *gorm.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)
		return run(cmd.Context(), db)
	}
}

func showStatus(ctx context.Context, db *gorm.DB, log *logger.Logger) error {
	log.Infof("🔍 Checking database status...")

	if err := database.HealthCheck(ctx, db); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	log.Infof("✅ Database connection: OK")

	tables, err := repository.TableNames(db)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			log.Warnf("❌ Table %-28s does not exist", table)
			continue
		}
		var count int64
		if err := db.WithContext(ctx).Table(table).Count(&count).Error; err != nil {
			log.Warnf("⚠️  Error counting table %s: %v", table, err)
			continue
		}
		log.Infof("✅ Table %-28s exists (%d rows)", table, count)
	}
	return nil
}

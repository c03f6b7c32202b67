package main

import (
	mongoMigration "carrental/internal/migrations/mongo"
	userrepo "carrental/internal/users/repository"
	userservice "carrental/internal/users/service"
	uservalidator "carrental/internal/users/validator"
	"carrental/pkg/auth"
	"carrental/pkg/config"
	"carrental/pkg/validation"
	"context"
	"fmt"
	"time"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting Mongo migration job")
	defer cfg.GracefulShutdown()

	migrateMongo(ctx, cfg)
	seedAdmin(ctx, cfg)
	fmt.Println("Migration completed successfully.")
}

func migrateMongo(ctx context.Context, cfg *config.Config) {
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
}

func seedAdmin(ctx context.Context, cfg *config.Config) {
	v, err := validation.New()
	if err != nil {
		cfg.Log.Fatal("Failed to build validator", "error", err)
	}
	accounts := userservice.NewUserService(
		userrepo.NewMongoUserRepository(cfg),
		uservalidator.NewUserValidator(v),
		auth.NewPasswordHasher(cfg.BcryptCost),
		cfg,
	)
	if err := mongoMigration.SeedAdmin(ctx, accounts, cfg); err != nil {
		cfg.Log.Fatal("Admin seed failed", "error", err)
	}
}

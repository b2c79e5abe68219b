package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nartuliga/nartuliga-server/cmd/api"
	"github.com/nartuliga/nartuliga-server/cmd/config"
	"github.com/nartuliga/nartuliga-server/cmd/models"
	"github.com/nartuliga/nartuliga-server/db"
	"github.com/nartuliga/nartuliga-server/service/blob"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations(cfg)
			return
		case "clear-db":
			runDatabaseClear(cfg)
			return
		default:
			log.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	startServer(cfg)
}

func runMigrations(cfg *config.Config) {
	DB, err := db.NewPSQLStorage(cfg.DBURL)
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database for migrations")

	if err := performMigrations(DB, cfg); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB, cfg *config.Config) error {

	migrations := []struct {
		model interface{}
		name  string
	}{
		{&models.User{}, "User"},
		{&models.Category{}, "Category"},
		{&models.Post{}, "Post"},
		{&models.Comment{}, "Comment"},
		{&models.Like{}, "Like"},
	}

	log.Println("Starting database migrations...")
	for _, migration := range migrations {
		log.Printf("Migrating %s table...", migration.name)
		if err := DB.AutoMigrate(migration.model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", migration.name, err)
		}
		log.Printf("%s migration successful", migration.name)
	}

	if err := seedCategories(DB); err != nil {
		return fmt.Errorf("error seeding categories: %w", err)
	}

	if err := bootstrapAdmin(DB, cfg); err != nil {
		return fmt.Errorf("error creating admin account: %w", err)
	}

	log.Println("All migrations and seed data completed successfully")
	return nil
}

// seedCategories inserts the starter categories, skipping any that already
// exist so repeated migrations stay idempotent.
func seedCategories(DB *gorm.DB) error {
	for _, seed := range models.SeedCategories() {
		var existing models.Category
		err := DB.Where("LOWER(name) = LOWER(?)", seed.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := DB.Create(&seed).Error; err != nil {
			return err
		}
		log.Printf("Seeded category %s", seed.Name)
	}
	return nil
}

// bootstrapAdmin creates the configured admin account on first run.
func bootstrapAdmin(DB *gorm.DB, cfg *config.Config) error {
	var existing models.User
	err := DB.Where("email = ?", cfg.AdminEmail).First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		AccountName:  cfg.AdminAccountName,
		Email:        cfg.AdminEmail,
		PasswordHash: string(passwordHash),
		Role:         models.RoleAdmin,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("Bootstrap admin account %s created", cfg.AdminEmail)
	return nil
}

func startServer(cfg *config.Config) {
	DB, err := db.NewPSQLStorage(cfg.DBURL)
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database")

	blobStore, err := blob.NewMinioStore(blob.Config{
		Endpoint:  cfg.BlobEndpoint,
		AccessKey: cfg.BlobAccessKey,
		SecretKey: cfg.BlobSecretKey,
		Bucket:    cfg.BlobBucket,
		UseSSL:    cfg.BlobUseSSL,
	})
	if err != nil {
		log.Fatalf("Blob storage initialization error: %v", err)
	}
	if err := blobStore.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("Blob bucket error: %v", err)
	}

	// Graceful shutdown setup
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	server := api.NewApiServer(":"+cfg.ServerPort, DB, blobStore, cfg)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server running on port %s", cfg.ServerPort)

	<-quit
	log.Println("Shutting down server...")
}

func runDatabaseClear(cfg *config.Config) {
	DB, err := db.NewPSQLStorage(cfg.DBURL)
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()

	log.Println("Preparing to clear database...")

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		log.Println("Database clearing cancelled.")
		return
	}

	// Children first so foreign keys don't block the drops.
	tables := []interface{}{
		&models.Like{},
		&models.Comment{},
		&models.Post{},
		&models.Category{},
		&models.User{},
	}

	log.Println("Dropping tables...")
	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
		} else {
			log.Printf("Table %T dropped", table)
		}
	}

	log.Println("Database cleared successfully")
}

// Command seed manages the canonical test accounts: an interactive menu to
// add or remove them from the configured user store.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/mwalcott/account-portal/internal/config"
	"github.com/mwalcott/account-portal/internal/models"
	"github.com/mwalcott/account-portal/internal/store"
)

const testPassword = "password123"

var testUsers = []struct {
	Name  string
	Email string
}{
	{"Admin User", "admin@example.com"},
	{"John Doe", "john@example.com"},
	{"Jane Smith", "jane@example.com"},
	{"Test User", "test@example.com"},
}

type seedStore interface {
	CreateUser(ctx context.Context, name, email, hashedPw string) (*models.User, error)
	DeleteUserByEmail(ctx context.Context, email string) error
}

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var users seedStore
	switch cfg.UserStore {
	case "postgres":
		pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres connect: %v", err)
		}
		defer pgPool.Close()
		pgStore := store.NewPostgresStore(pgPool)
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatalf("postgres migrate: %v", err)
		}
		users = pgStore
	default:
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("mongo connect: %v", err)
		}
		defer mongoClient.Disconnect(ctx)
		mongoStore, err := store.NewMongoStore(ctx, mongoClient.Database(cfg.MongoDB))
		if err != nil {
			log.Fatalf("mongo store: %v", err)
		}
		users = mongoStore
	}

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println("\n--- Test User Management ---")
		fmt.Println("1) Add test users")
		fmt.Println("2) Remove test users")
		fmt.Println("3) Exit")
		fmt.Print("\nSelect an option (1-3): ")
		if !in.Scan() {
			return
		}
		switch strings.TrimSpace(in.Text()) {
		case "1":
			addUsers(ctx, users)
		case "2":
			removeUsers(ctx, users)
		case "3":
			fmt.Println("Exiting...")
			return
		default:
			fmt.Println("Invalid option. Please try again.")
		}
	}
}

func addUsers(ctx context.Context, users seedStore) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	for _, tu := range testUsers {
		_, err := users.CreateUser(ctx, tu.Name, tu.Email, string(hashed))
		if errors.Is(err, store.ErrDuplicateEmail) {
			fmt.Printf("- %s already exists, skipped\n", tu.Email)
			continue
		}
		if err != nil {
			fmt.Printf("- %s: %v\n", tu.Email, err)
			continue
		}
		fmt.Printf("- %s created\n", tu.Email)
	}
	fmt.Println("\nTest users added. You can log in with:")
	for _, tu := range testUsers {
		fmt.Printf("- %s / %s\n", tu.Email, testPassword)
	}
}

func removeUsers(ctx context.Context, users seedStore) {
	for _, tu := range testUsers {
		if err := users.DeleteUserByEmail(ctx, tu.Email); err != nil {
			fmt.Printf("- %s: %v\n", tu.Email, err)
			continue
		}
		fmt.Printf("- %s removed\n", tu.Email)
	}
	fmt.Println("Test users removed.")
}

// Command accountctl is an interactive client for the account portal. It
// drives the session store: login, registration, profile display and
// editing, logout, and a server status check.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mwalcott/account-portal/internal/models"
	"github.com/mwalcott/account-portal/internal/session"
)

func main() {
	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	storage := session.NewFileStorage(session.DefaultStoragePath())
	sess := session.New(baseURL, storage)
	ctx := context.Background()

	if user, ok := sess.Current(); ok {
		fmt.Printf("Welcome back, %s!\n", user.Name)
	}

	in := bufio.NewScanner(os.Stdin)
	fmt.Println("Commands: login, register, whoami, update, status, logout, exit")
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		switch strings.TrimSpace(in.Text()) {
		case "login":
			email := prompt(in, "Email: ")
			password := prompt(in, "Password: ")
			if err := sess.Login(ctx, email, password); err != nil {
				fmt.Println("Login failed:", sess.Err())
				continue
			}
			user, _ := sess.Current()
			fmt.Printf("Welcome, %s!\n", user.Name)
		case "register":
			name := prompt(in, "Full name: ")
			email := prompt(in, "Email: ")
			password := prompt(in, "Password: ")
			if password != prompt(in, "Confirm password: ") {
				fmt.Println("Passwords do not match")
				continue
			}
			if len(password) < 6 {
				fmt.Println("Password must be at least 6 characters")
				continue
			}
			if err := sess.Register(ctx, name, email, password); err != nil {
				fmt.Println("Registration failed:", sess.Err())
				continue
			}
			user, _ := sess.Current()
			fmt.Printf("Account created. Welcome, %s!\n", user.Name)
		case "whoami":
			user, ok := sess.Current()
			if !ok {
				fmt.Println("Not logged in")
				continue
			}
			fmt.Printf("Name:  %s\nEmail: %s\nID:    %s\n", user.Name, user.Email, user.ID)
		case "update":
			if err := updateProfile(ctx, in, sess); err != nil {
				fmt.Println("Update failed:", err)
			}
		case "status":
			fmt.Println("Server:", sess.ServerStatus(ctx))
		case "logout":
			sess.Logout()
			fmt.Println("Logged out")
		case "exit", "quit":
			return
		case "":
		default:
			fmt.Println("Unknown command")
		}
	}
}

func updateProfile(ctx context.Context, in *bufio.Scanner, sess *session.Store) error {
	user, ok := sess.Current()
	if !ok {
		return session.ErrNotAuthenticated
	}

	var upd models.UpdateProfileRequest
	if v := prompt(in, fmt.Sprintf("Name [%s]: ", user.Name)); v != "" && v != user.Name {
		upd.Name = &v
	}
	if v := prompt(in, fmt.Sprintf("Email [%s]: ", user.Email)); v != "" && v != user.Email {
		upd.Email = &v
	}
	if v := prompt(in, "New password (blank to keep): "); v != "" {
		if len(v) < 6 {
			return fmt.Errorf("password must be at least 6 characters")
		}
		upd.Password = &v
	}
	if upd.Name == nil && upd.Email == nil && upd.Password == nil {
		fmt.Println("No changes detected")
		return nil
	}

	if err := sess.UpdateProfile(ctx, upd); err != nil {
		return err
	}
	fmt.Println("Profile updated successfully")
	return nil
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

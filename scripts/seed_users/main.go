// Command seed_users provisions staff accounts from a JSON file. Intended for
// bootstrapping a fresh environment, it skips accounts that already exist.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/amal-center/rehab-center-api/internal/models"
	"github.com/amal-center/rehab-center-api/internal/repository"
	"github.com/amal-center/rehab-center-api/pkg/config"
	"github.com/amal-center/rehab-center-api/pkg/database"
)

type seedAccount struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

func main() {
	var (
		accountsPath string
		timeout      time.Duration
	)

	flag.StringVar(&accountsPath, "accounts", filepath.Join("scripts", "seed_users", "accounts.json"), "Path to JSON accounts file")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	accounts, err := loadAccounts(accountsPath)
	if err != nil {
		log.Fatalf("failed to load accounts: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	users := repository.NewUserRepository(db)
	created := 0
	for _, account := range accounts {
		role := models.UserRole(strings.ToUpper(strings.TrimSpace(account.Role)))
		if !validRole(role) {
			log.Fatalf("unknown role %q for %s", account.Role, account.Email)
		}

		if _, err := users.FindByEmail(ctx, account.Email); err == nil {
			log.Printf("skip %s: already exists", account.Email)
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(account.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("failed to hash password for %s: %v", account.Email, err)
		}

		user := &models.User{
			Email:        account.Email,
			PasswordHash: string(hash),
			FullName:     account.FullName,
			Role:         role,
			Active:       true,
		}
		if err := users.Create(ctx, user); err != nil {
			log.Fatalf("failed to create %s: %v", account.Email, err)
		}
		log.Printf("created %s (%s)", account.Email, role)
		created++
	}

	log.Printf("done: %d account(s) created", created)
}

func loadAccounts(path string) ([]seedAccount, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var accounts []seedAccount
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func validRole(role models.UserRole) bool {
	switch role {
	case models.RoleDirector, models.RoleDoctor, models.RoleSocialWorker, models.RoleNurse, models.RoleAdmin:
		return true
	}
	return false
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/toefl-quiz-backend/internal/config"
	"github.com/stemsi/toefl-quiz-backend/internal/database"
	"github.com/stemsi/toefl-quiz-backend/internal/logger"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
	"github.com/stemsi/toefl-quiz-backend/internal/repository"
	"github.com/stemsi/toefl-quiz-backend/internal/service"
)

// issue-token registers a member and prints a bearer token for it. Useful for
// local testing when the identity provider is not running.
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	users := repository.NewUserRepository(pool)
	authService := service.NewAuthService(cfg)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Issue Member Token ===")

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	fmt.Print("Pro subscription days (0 for free tier): ")
	daysStr, _ := reader.ReadString('\n')
	days, err := strconv.Atoi(strings.TrimSpace(daysStr))
	if err != nil || days < 0 {
		days = 0
	}

	fmt.Print("Token lifetime in hours (default 24): ")
	ttlStr, _ := reader.ReadString('\n')
	ttlHours, err := strconv.Atoi(strings.TrimSpace(ttlStr))
	if err != nil || ttlHours <= 0 {
		ttlHours = 24
	}

	// ─── Upsert User ───────────────────────────────────────────────────
	user, err := users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		user = &model.User{ID: uuid.New(), Email: &email}
	} else if err != nil {
		fmt.Printf("Error looking up user: %v\n", err)
		os.Exit(1)
	}

	user.SubscriptionStatus = model.SubscriptionFree
	user.SubscriptionEnd = nil
	if days > 0 {
		user.SubscriptionStatus = model.SubscriptionPro
		user.SubscriptionEnd = repository.ProUntil(days)
	}

	if err := users.Upsert(ctx, user); err != nil {
		fmt.Printf("Error saving user: %v\n", err)
		os.Exit(1)
	}

	token, err := authService.GenerateMemberToken(user.ID, email, time.Duration(ttlHours)*time.Hour)
	if err != nil {
		fmt.Printf("Error signing token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nUser ID:      %s\n", user.ID)
	fmt.Printf("Subscription: %s\n", user.SubscriptionStatus)
	fmt.Printf("Quizzes today: %d, streak: %d days\n", user.DailyQuizzesCount, user.StreakDays)
	fmt.Printf("\nAuthorization: Bearer %s\n", token)
}

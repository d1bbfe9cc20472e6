// seed creates a verified demo user with a handful of notes in the
// configured database and prints a session token for it.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ErlanBelekov/hdnotes/internal/domain"
	"github.com/ErlanBelekov/hdnotes/internal/infrastructure/store"
	ctxlog "github.com/ErlanBelekov/hdnotes/internal/log"
	"github.com/ErlanBelekov/hdnotes/internal/session"
	"github.com/ErlanBelekov/hdnotes/internal/usecase"
	"github.com/joho/godotenv"
)

const (
	seedEmail = "seed@test.local"
	seedName  = "Seed User"
	seedCode  = "000000"
)

var notes = []struct{ title, content string }{
	{"Welcome", "This note was created by the seed command."},
	{"Groceries", "Milk, eggs, bread, coffee."},
	{"Reading list", "Designing Data-Intensive Applications\nThe Go Programming Language"},
	{"Ideas", "Share notes with a link.\nMarkdown preview."},
	{"Meeting", "Sync with the team on Thursday at 10:00."},
}

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	logger := ctxlog.New(os.Stderr, "local", 0)
	st, err := store.Open(ctx, dbURL, 2, logger)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer st.Close()

	user, err := verifiedUser(ctx, st)
	if err != nil {
		log.Fatalf("seed user: %v", err)
	}

	existing, err := st.Notes.ListByUser(ctx, user.ID)
	if err != nil {
		log.Fatalf("list notes: %v", err)
	}

	var inserted int
	if len(existing) == 0 {
		for _, n := range notes {
			if _, err := st.Notes.Create(ctx, &domain.Note{UserID: user.ID, Title: n.title, Content: n.content}); err != nil {
				log.Fatalf("insert note %q: %v", n.title, err)
			}
			inserted++
		}
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  Store:         %s\n", st.Driver)
	fmt.Printf("  User:          %s\n", user.Email)
	fmt.Printf("  User ID:       %s\n", user.ID)
	fmt.Printf("  Notes created: %d  (skipped %d already existing)\n", inserted, len(existing))
	fmt.Println()

	access, refresh := os.Getenv("JWT_SECRET"), os.Getenv("JWT_REFRESH_SECRET")
	if access == "" || refresh == "" {
		fmt.Println("  Set JWT_SECRET and JWT_REFRESH_SECRET to print a session token.")
		return
	}
	pair, err := session.NewIssuer([]byte(access), []byte(refresh)).MintPair(user.ID, user.Email)
	if err != nil {
		log.Fatalf("mint session: %v", err)
	}

	fmt.Println("How to test:")
	fmt.Println()
	fmt.Printf("    export JWT=%s\n", pair.AccessToken)
	fmt.Println("    curl -s http://localhost:8080/user  -H \"Authorization: Bearer $JWT\"")
	fmt.Println("    curl -s http://localhost:8080/notes -H \"Authorization: Bearer $JWT\"")
	fmt.Println()
	fmt.Printf("  Token expires at %s\n", pair.AccessExpiresAt.Format(time.RFC3339))
}

// verifiedUser walks the signup path directly against the store: a pending
// record with a known code, consumed at once.
func verifiedUser(ctx context.Context, st *store.Store) (*domain.User, error) {
	now := time.Now()
	codeHash := usecase.HashOTP(seedCode)
	_, err := st.Users.UpsertPending(ctx, domain.PendingUser{
		Email:       seedEmail,
		DisplayName: seedName,
		CodeHash:    codeHash,
		ExpiresAt:   now.Add(time.Minute),
	})
	if errors.Is(err, domain.ErrConflict) {
		return st.Users.FindVerifiedByEmail(ctx, seedEmail)
	}
	if err != nil {
		return nil, err
	}
	return st.Users.ConsumeChallenge(ctx, seedEmail, codeHash, now)
}

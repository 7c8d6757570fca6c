package migrations

import (
	"io"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(FS, ".")
	if err != nil {
		t.Fatalf("iofs.New: %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil || first != 1 {
		t.Fatalf("First() = %d, %v", first, err)
	}

	r, _, err := src.ReadUp(first)
	if err != nil {
		t.Fatalf("ReadUp: %v", err)
	}
	defer r.Close()
	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	for _, fn := range []string{"check_and_reserve_quiz_limit", "update_user_streak", "cleanup_expired_guest_quizzes"} {
		if !strings.Contains(string(body), fn) {
			t.Errorf("up migration missing %s", fn)
		}
	}

	down, _, err := src.ReadDown(first)
	if err != nil {
		t.Fatalf("ReadDown: %v", err)
	}
	down.Close()
}

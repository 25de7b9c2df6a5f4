package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	apperrors "github.com/wcfdehao/gomoku/pkg/errors"
)

func TestClaimAndLookup(t *testing.T) {
	accounts := NewAccounts(NewMemoryKV())
	ctx := context.Background()

	secret, err := accounts.Claim(ctx, "alice")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if secret == "" {
		t.Fatal("Claim should return a secret")
	}

	name, err := accounts.Lookup(ctx, secret)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if name != "alice" {
		t.Errorf("Expected alice, got %s", name)
	}

	claimed, err := accounts.IsClaimed(ctx, "alice")
	if err != nil || !claimed {
		t.Errorf("alice should be claimed, got %v, %v", claimed, err)
	}
}

func TestClaimDuplicate(t *testing.T) {
	accounts := NewAccounts(NewMemoryKV())
	ctx := context.Background()

	if _, err := accounts.Claim(ctx, "alice"); err != nil {
		t.Fatalf("First claim failed: %v", err)
	}

	_, err := accounts.Claim(ctx, "alice")
	if !errors.Is(err, apperrors.ErrNameTaken) {
		t.Errorf("Second claim should fail with name taken, got %v", err)
	}
}

func TestClaimConcurrent(t *testing.T) {
	accounts := NewAccounts(NewMemoryKV())
	ctx := context.Background()

	var wg sync.WaitGroup
	secrets := make(chan string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if secret, err := accounts.Claim(ctx, "alice"); err == nil {
				secrets <- secret
			}
		}()
	}
	wg.Wait()
	close(secrets)

	count := 0
	for range secrets {
		count++
	}
	if count != 1 {
		t.Errorf("Expected exactly one successful claim, got %d", count)
	}
}

func TestRelease(t *testing.T) {
	accounts := NewAccounts(NewMemoryKV())
	ctx := context.Background()

	secret, err := accounts.Claim(ctx, "alice")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	if err := accounts.Release(ctx, "alice", secret); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	claimed, _ := accounts.IsClaimed(ctx, "alice")
	if claimed {
		t.Error("alice should be free after release")
	}

	if _, err := accounts.Lookup(ctx, secret); !errors.Is(err, apperrors.ErrKeyNotFound) {
		t.Errorf("Secret should be gone after release, got %v", err)
	}

	// Name can be claimed again.
	if _, err := accounts.Claim(ctx, "alice"); err != nil {
		t.Errorf("Re-claim after release should succeed, got %v", err)
	}
}

func TestSecretsDiffer(t *testing.T) {
	accounts := NewAccounts(NewMemoryKV())
	ctx := context.Background()

	first, err := accounts.Claim(ctx, "alice")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	second, err := accounts.Claim(ctx, "bob")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if first == second {
		t.Error("Distinct claims should produce distinct secrets")
	}
	if len(first) != 32 {
		t.Errorf("Expected 32-char hex secret, got %q", first)
	}
}

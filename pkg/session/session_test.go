package session

import (
	"testing"
	"time"
)

func TestNewSession(t *testing.T) {
	user := &User{ID: "u-1", Email: "dev@example.com"}
	sess, err := New("tok-123", user, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if sess.ID == "" || sess.AccessToken != "tok-123" {
		t.Errorf("session = %+v", sess)
	}
	if sess.IsExpired() {
		t.Error("fresh session should not be expired")
	}
	if sess.UserID() != "platform:u-1" {
		t.Errorf("UserID = %q", sess.UserID())
	}
}

func TestGenerateIDUnique(t *testing.T) {
	a, err := GenerateID()
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateID()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("IDs should be unique")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := t.Context()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	sess, _ := New("tok", &User{ID: "u-1", Email: "dev@example.com"}, time.Hour)
	if err := store.Set(ctx, sess); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.AccessToken != "tok" || got.User.Email != "dev@example.com" {
		t.Errorf("Get = %+v", got)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := store.Get(ctx, sess.ID); got != nil {
		t.Error("session present after Delete")
	}
}

func TestFileStoreExpiry(t *testing.T) {
	ctx := t.Context()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	sess, _ := New("tok", &User{ID: "u-1"}, -time.Minute)
	if err := store.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Error("expired session should read as missing")
	}
}

func TestFileStoreCleanup(t *testing.T) {
	ctx := t.Context()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	fresh, _ := New("tok-a", &User{ID: "a"}, time.Hour)
	stale, _ := New("tok-b", &User{ID: "b"}, -time.Hour)
	_ = store.Set(ctx, fresh)
	_ = store.Set(ctx, stale)

	if err := store.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if got, _ := store.Get(ctx, fresh.ID); got == nil {
		t.Error("fresh session removed by Cleanup")
	}
	if got, _ := store.Get(ctx, stale.ID); got != nil {
		t.Error("stale session survived Cleanup")
	}
}

func TestCLIStoreOverwrites(t *testing.T) {
	ctx := t.Context()
	base, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cli := &CLIStore{store: base, sessionID: defaultCLISessionID}

	first, _ := New("tok-old", &User{ID: "u"}, time.Hour)
	second, _ := New("tok-new", &User{ID: "u"}, time.Hour)
	_ = cli.SaveSession(ctx, first)
	_ = cli.SaveSession(ctx, second)

	got, err := cli.GetSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.AccessToken != "tok-new" {
		t.Errorf("session = %+v", got)
	}

	if err := cli.DeleteSession(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := cli.GetSession(ctx); got != nil {
		t.Error("session present after DeleteSession")
	}
}

func TestLocalSession(t *testing.T) {
	sess := Local()
	if sess.IsExpired() {
		t.Error("local session should not expire")
	}
	if sess.UserID() != "platform:local" {
		t.Errorf("UserID = %q", sess.UserID())
	}
}

package history_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"waxwing/internal/crypto"
	"waxwing/internal/domain"
	"waxwing/internal/history"
)

func testKey(t *testing.T) domain.PublicKey {
	t.Helper()
	_, pk, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	return pk
}

func openHistory(t *testing.T, path, password string, salt []byte) *history.History {
	t.Helper()
	h, err := history.Open(path, password, salt, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return h
}

func TestOpen_SaltContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.db")
	if _, err := history.Open(path, "", []byte("short"), zerolog.Nop()); !errors.Is(err, history.ErrBadSalt) {
		t.Fatalf("short salt: got %v, want ErrBadSalt", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("database created despite bad salt")
	}
}

func TestAddAndReadMessages(t *testing.T) {
	self, peer := testKey(t), testKey(t)
	h := openHistory(t, filepath.Join(t.TempDir(), "a.db"), "", self.Slice())
	defer h.Close()

	ts := time.Now().Truncate(time.Millisecond)
	if err := h.AddMessage(peer, self, "me", ts, "hello there"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := h.AddMessage(peer, peer, "them", ts.Add(time.Second), "hi back"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	msgs, err := h.Messages(peer, 0)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Body != "hello there" || msgs[0].Sender != self || !msgs[0].Timestamp.Equal(ts) {
		t.Fatalf("first message wrong: %+v", msgs[0])
	}
	if msgs[1].Body != "hi back" || msgs[1].Sender != peer {
		t.Fatalf("second message wrong: %+v", msgs[1])
	}
}

func TestEncryptedBodies_NotStoredInClear(t *testing.T) {
	self, peer := testKey(t), testKey(t)
	path := filepath.Join(t.TempDir(), "a.db")
	h := openHistory(t, path, "hunter2", self.Slice())

	body := "very private text"
	if err := h.AddMessage(peer, self, "me", time.Now(), body); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read db file: %v", err)
	}
	if bytes.Contains(raw, []byte(body)) {
		t.Fatal("message body stored in the clear")
	}

	h = openHistory(t, path, "hunter2", self.Slice())
	defer h.Close()
	msgs, err := h.Messages(peer, 0)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Body != body {
		t.Fatalf("round trip: %+v", msgs)
	}
}

func TestSetPassword_RekeysBodies(t *testing.T) {
	self, peer := testKey(t), testKey(t)
	path := filepath.Join(t.TempDir(), "a.db")
	h := openHistory(t, path, "oldpw", self.Slice())

	if err := h.AddMessage(peer, self, "me", time.Now(), "carried across"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := h.SetPassword("newpw"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Old key no longer opens the bodies.
	h = openHistory(t, path, "oldpw", self.Slice())
	if _, err := h.Messages(peer, 0); !errors.Is(err, history.ErrBodyDecrypt) {
		t.Fatalf("old password: got %v, want ErrBodyDecrypt", err)
	}
	h.Close()

	h = openHistory(t, path, "newpw", self.Slice())
	defer h.Close()
	msgs, err := h.Messages(peer, 0)
	if err != nil || len(msgs) != 1 || msgs[0].Body != "carried across" {
		t.Fatalf("new password: %v %+v", err, msgs)
	}
}

func TestSetPassword_EmptyStoresClear(t *testing.T) {
	self, peer := testKey(t), testKey(t)
	path := filepath.Join(t.TempDir(), "a.db")
	h := openHistory(t, path, "oldpw", self.Slice())

	if err := h.AddMessage(peer, self, "me", time.Now(), "soon public"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := h.SetPassword(""); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	h.Close()

	h = openHistory(t, path, "", self.Slice())
	defer h.Close()
	msgs, err := h.Messages(peer, 0)
	if err != nil || len(msgs) != 1 || msgs[0].Body != "soon public" {
		t.Fatalf("after decrypting store: %v %+v", err, msgs)
	}
}

func TestRenameAndRemove(t *testing.T) {
	self, peer := testKey(t), testKey(t)
	dir := t.TempDir()
	oldPath, newPath := filepath.Join(dir, "a.db"), filepath.Join(dir, "b.db")
	h := openHistory(t, oldPath, "", self.Slice())

	if err := h.AddMessage(peer, self, "me", time.Now(), "movable"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := h.Rename(newPath); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if _, err := os.Stat(oldPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("old database file still present")
	}
	msgs, err := h.Messages(peer, 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("after rename: %v %+v", err, msgs)
	}

	if err := h.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(newPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("database file survived Remove")
	}
}

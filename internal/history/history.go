// Package history persists chat logs in a per-profile sqlite database.
//
// The profile layer supplies the database path, the profile password and a
// salt derived from the owner's public key; everything else is owned here.
// Message bodies are encrypted at rest when the profile has a password,
// with a key derived from password and salt, and are re-encrypted in one
// transaction on password change.
package history

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"waxwing/internal/domain"
	"waxwing/internal/util/memzero"
)

// SaltLength is the required salt size. The profile layer derives the salt
// from the owner public key, whose size must match exactly.
const SaltLength = domain.PublicKeySize

var (
	// ErrBadSalt is returned by Open when the salt has the wrong length.
	// The caller degrades to a session without chat logs.
	ErrBadSalt = errors.New("salt length mismatch, chat logs unavailable")

	// ErrBodyDecrypt is returned when a stored message body cannot be
	// opened with the current key.
	ErrBodyDecrypt = errors.New("cannot decrypt message body")
)

const schema = `
CREATE TABLE IF NOT EXISTS peers (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	public_key TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	peer         INTEGER NOT NULL REFERENCES peers(id),
	sender       TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	ts           INTEGER NOT NULL,
	body         BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_peer_ts ON messages(peer, ts);
`

// Message is one stored chat line.
type Message struct {
	Sender      domain.PublicKey
	DisplayName string
	Timestamp   time.Time
	Body        string
}

// History is an open chat-log database.
type History struct {
	path string
	db   *sql.DB
	log  zerolog.Logger

	key  []byte // nil when bodies are stored in the clear
	salt []byte
}

// Open opens or creates the database at path. A non-empty password enables
// body encryption keyed by (password, salt).
func Open(path, password string, salt []byte, log zerolog.Logger) (*History, error) {
	if len(salt) != SaltLength {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrBadSalt, len(salt), SaltLength)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}

	h := &History{path: path, db: db, log: log, salt: append([]byte(nil), salt...)}
	if password != "" {
		h.key = deriveBodyKey(password, salt)
	}
	return h, nil
}

// Path returns the database file path.
func (h *History) Path() string { return h.path }

// AddMessage appends one chat line for peer.
func (h *History) AddMessage(peer, sender domain.PublicKey, displayName string, ts time.Time, body string) error {
	sealed, err := h.seal([]byte(body))
	if err != nil {
		return err
	}
	peerID, err := h.peerID(peer)
	if err != nil {
		return err
	}
	_, err = h.db.Exec(
		`INSERT INTO messages (peer, sender, display_name, ts, body) VALUES (?, ?, ?, ?, ?)`,
		peerID, sender.Hex(), displayName, ts.UnixMilli(), sealed,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Messages returns up to limit lines for peer, oldest first. limit <= 0
// means no limit.
func (h *History) Messages(peer domain.PublicKey, limit int) ([]Message, error) {
	q := `SELECT m.sender, m.display_name, m.ts, m.body
	        FROM messages m JOIN peers p ON p.id = m.peer
	       WHERE p.public_key = ? ORDER BY m.ts, m.id`
	args := []any{peer.Hex()}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			senderHex string
			name      string
			tsMilli   int64
			sealed    []byte
		)
		if err := rows.Scan(&senderHex, &name, &tsMilli, &sealed); err != nil {
			return nil, err
		}
		sender, err := domain.ParsePublicKey(senderHex)
		if err != nil {
			return nil, fmt.Errorf("stored sender key: %w", err)
		}
		body, err := h.open(sealed)
		if err != nil {
			return nil, err
		}
		out = append(out, Message{
			Sender:      sender,
			DisplayName: name,
			Timestamp:   time.UnixMilli(tsMilli),
			Body:        string(body),
		})
	}
	return out, rows.Err()
}

// SetPassword re-keys every stored body under the new password in a single
// transaction. An empty password stores bodies in the clear. On error the
// database is left on the old key.
func (h *History) SetPassword(newPassword string) error {
	var newKey []byte
	if newPassword != "" {
		newKey = deriveBodyKey(newPassword, h.salt)
	}

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("begin rekey: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(`SELECT id, body FROM messages`)
	if err != nil {
		return fmt.Errorf("read bodies: %w", err)
	}

	type rekeyed struct {
		id   int64
		body []byte
	}
	var pending []rekeyed
	for rows.Next() {
		var (
			id     int64
			sealed []byte
		)
		if err := rows.Scan(&id, &sealed); err != nil {
			rows.Close()
			return err
		}
		plain, err := h.open(sealed)
		if err != nil {
			rows.Close()
			return err
		}
		resealed, err := seal(newKey, plain)
		if err != nil {
			rows.Close()
			return err
		}
		pending = append(pending, rekeyed{id: id, body: resealed})
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, r := range pending {
		if _, err := tx.Exec(`UPDATE messages SET body = ? WHERE id = ?`, r.body, r.id); err != nil {
			return fmt.Errorf("rewrite body: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rekey: %w", err)
	}

	if h.key != nil {
		memzero.Zero(h.key)
	}
	h.key = newKey
	return nil
}

// Rename closes the database, moves the file and reopens it at the new
// path.
func (h *History) Rename(newPath string) error {
	if err := h.db.Close(); err != nil {
		return fmt.Errorf("close for rename: %w", err)
	}
	if err := os.Rename(h.path, newPath); err != nil {
		return err
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000", newPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("reopen after rename: %w", err)
	}
	h.path = newPath
	h.db = db
	return nil
}

// Remove closes the database and deletes its file.
func (h *History) Remove() error {
	if err := h.db.Close(); err != nil {
		h.log.Warn().Err(err).Msg("closing history database before removal")
	}
	if err := os.Remove(h.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Close releases the database handle.
func (h *History) Close() error {
	if h.key != nil {
		memzero.Zero(h.key)
		h.key = nil
	}
	return h.db.Close()
}

func (h *History) peerID(pk domain.PublicKey) (int64, error) {
	if _, err := h.db.Exec(`INSERT OR IGNORE INTO peers (public_key) VALUES (?)`, pk.Hex()); err != nil {
		return 0, fmt.Errorf("upsert peer: %w", err)
	}
	var id int64
	err := h.db.QueryRow(`SELECT id FROM peers WHERE public_key = ?`, pk.Hex()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup peer: %w", err)
	}
	return id, nil
}

func (h *History) seal(plain []byte) ([]byte, error) { return seal(h.key, plain) }

func (h *History) open(sealed []byte) ([]byte, error) { return open(h.key, sealed) }

// seal encrypts plain as nonce||ciphertext, or returns it unchanged when
// key is nil.
func seal(key, plain []byte) ([]byte, error) {
	if key == nil {
		return plain, nil
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

func open(key, sealed []byte) ([]byte, error) {
	if key == nil {
		return sealed, nil
	}
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return nil, ErrBodyDecrypt
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:], nil)
	if err != nil {
		return nil, ErrBodyDecrypt
	}
	return plain, nil
}

// deriveBodyKey stretches the profile password into the body encryption
// key.
func deriveBodyKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, 2, 64*1024, 1, chacha20poly1305.KeySize)
}

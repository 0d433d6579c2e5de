package profile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"waxwing/internal/crypto"
	"waxwing/internal/domain"
	"waxwing/internal/history"
	"waxwing/internal/lock"
	"waxwing/internal/settings"
	"waxwing/internal/store"
	"waxwing/internal/util/taskq"
)

// defaultStatusMessage is persisted into a freshly created profile.
const defaultStatusMessage = "Chirping on waxwing"

// offerQueueSize bounds deferred avatar-offer handlers.
const offerQueueSize = 16

// Events is the outward notification surface. Nil members are skipped.
// Callbacks fire on the core's loop goroutine.
type Events struct {
	SelfAvatarChanged   func(pic []byte)
	FriendAvatarChanged func(friend domain.PublicKey, pic []byte)
	FriendAvatarRemoved func(friend domain.PublicKey)
	FailedToStart       func(err error)
	BadProxy            func()
}

func (e Events) selfAvatarChanged(pic []byte) {
	if e.SelfAvatarChanged != nil {
		e.SelfAvatarChanged(pic)
	}
}

func (e Events) friendAvatarChanged(friend domain.PublicKey, pic []byte) {
	if e.FriendAvatarChanged != nil {
		e.FriendAvatarChanged(friend, pic)
	}
}

func (e Events) friendAvatarRemoved(friend domain.PublicKey) {
	if e.FriendAvatarRemoved != nil {
		e.FriendAvatarRemoved(friend)
	}
}

// Config carries a profile's injected collaborators. Locker, NewCore and
// NewAV are required; Global may be nil when no installation-wide settings
// exist. Log should be zerolog.Nop when discarding output.
type Config struct {
	Paths       store.Paths
	Locker      *lock.Locker
	Global      *settings.Global
	NewCore     domain.CoreFactory
	NewAV       domain.AVFactory
	CoreOptions domain.CoreOptions
	Events      Events
	Log         zerolog.Logger
}

// Profile is one loaded user identity with its core, caches and history.
type Profile struct {
	cfg Config
	log zerolog.Logger

	mu       sync.Mutex
	name     string
	key      *crypto.Passkey // nil iff the profile is unencrypted
	guard    *lock.Guard
	core     domain.Core
	av       domain.AV
	avatars  *store.AvatarCache
	hist     *history.History // nil when chat logs are disabled
	personal *settings.Profile
	bcast    *broadcaster
	queue    *taskq.Queue
	removed  bool
	closed   bool
}

// Load locks and loads an existing profile and brings its core up.
func Load(cfg Config, name, password string) (*Profile, error) {
	guard, err := cfg.Locker.TryLock(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileLocked, err)
	}
	ok := false
	defer func() {
		if !ok {
			guard.Release()
		}
	}()

	raw, err := store.ReadFile(cfg.Paths.Save(name))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrSaveNotFound, cfg.Paths.Save(name))
	case errors.Is(err, store.ErrEmptyFile):
		return nil, fmt.Errorf("%w: %s", ErrSaveEmpty, cfg.Paths.Save(name))
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrSaveRead, err)
	}

	var key *crypto.Passkey
	saveBytes := raw
	if crypto.IsEncrypted(raw) {
		if password == "" {
			return nil, ErrEncryptedNoPassword
		}
		if key, err = crypto.KeyFromCiphertext(password, raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
		}
		if saveBytes, err = key.Decrypt(raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
		}
	} else if password != "" {
		return nil, ErrPasswordUnexpected
	}

	p := newProfile(cfg, name, key, guard)
	if err := p.bootstrap(saveBytes, false, password); err != nil {
		return nil, err
	}
	ok = true
	p.recordCurrentProfile()
	return p, nil
}

// Create makes a new profile with a fresh identity and persists its first
// save so a save file exists on disk from here on.
func Create(cfg Config, name, password string) (*Profile, error) {
	var key *crypto.Passkey
	if password != "" {
		var err error
		if key, err = crypto.NewKey(password); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyDerivation, err)
		}
	}

	guard, err := cfg.Locker.TryLock(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileLocked, err)
	}
	ok := false
	defer func() {
		if !ok {
			guard.Release()
		}
	}()

	if _, err := os.Stat(cfg.Paths.Save(name)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, cfg.Paths.Save(name))
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %v", ErrSaveRead, err)
	}

	if err := settings.CreatePersonal(cfg.Paths, name); err != nil {
		cfg.Log.Warn().Err(err).Str("profile", name).Msg("could not create settings file")
	}

	p := newProfile(cfg, name, key, guard)
	if err := p.bootstrap(nil, true, password); err != nil {
		return nil, err
	}
	ok = true
	p.recordCurrentProfile()
	return p, nil
}

func newProfile(cfg Config, name string, key *crypto.Passkey, guard *lock.Guard) *Profile {
	return &Profile{
		cfg:   cfg,
		log:   cfg.Log.With().Str("profile", name).Logger(),
		name:  name,
		key:   key,
		guard: guard,
	}
}

// bootstrap runs core init, AV init, notification wiring and history open.
// On error everything started so far is torn down; the caller releases the
// lock.
func (p *Profile) bootstrap(saveBytes []byte, isNew bool, password string) (err error) {
	// Non-empty save data and a new profile are mutually exclusive, and an
	// existing profile must have data. Either way this is an internal
	// contract breach, not a user error.
	if len(saveBytes) == 0 && !isNew {
		return p.startupFailure(fmt.Errorf("%w: existing save data is empty", domain.ErrFailedToStart))
	}
	if len(saveBytes) != 0 && isNew {
		return p.startupFailure(fmt.Errorf("%w: new profile has save data", domain.ErrFailedToStart))
	}

	defer func() {
		if err != nil {
			p.teardown()
		}
	}()

	personal, perr := settings.LoadPersonal(p.cfg.Paths, p.name)
	if perr != nil {
		p.log.Warn().Err(perr).Msg("could not load profile settings, using defaults")
	}
	p.personal = personal

	core, cerr := p.cfg.NewCore(saveBytes, p.cfg.CoreOptions)
	if cerr != nil {
		return p.startupFailure(cerr)
	}
	p.core = core

	av, aerr := p.cfg.NewAV(core)
	if aerr != nil {
		return p.startupFailure(fmt.Errorf("%w: av: %v", domain.ErrFailedToStart, aerr))
	}
	p.av = av
	if serr := av.Start(); serr != nil {
		return p.startupFailure(fmt.Errorf("%w: av: %v", domain.ErrFailedToStart, serr))
	}

	p.avatars = store.NewAvatarCache(p.cfg.Paths, core.PublicKey(), p.key, p.log)
	p.bcast = newBroadcaster(core, p.log)
	p.queue = taskq.New(offerQueueSize)

	core.SetCallbacks(domain.CoreCallbacks{
		SaveRequested: func() {
			if err := p.Save(); err != nil {
				p.log.Warn().Err(err).Msg("requested save failed")
			}
		},
		FriendAvatarChanged: p.setFriendAvatar,
		FriendAvatarRemoved: p.removeFriendAvatar,
		AvatarOfferReceived: func(friend domain.PublicKey, fileID uint32, hash []byte, _ uint64) {
			// Deferred: responding inline would re-enter the core from
			// within its own delivery.
			p.queue.Enqueue(func() { p.onAvatarOffer(friend, fileID, hash) })
		},
		FriendOnline:      p.bcast.FriendOnline,
		FriendRequestSent: p.onRequestSent,
	})

	if serr := core.Start(); serr != nil {
		return p.startupFailure(fmt.Errorf("%w: %v", domain.ErrFailedToStart, serr))
	}

	if isNew {
		core.SetStatusMessage(defaultStatusMessage)
		core.SetUsername(p.name)
		if serr := p.Save(); serr != nil {
			return p.startupFailure(fmt.Errorf("%w: initial save: %v", domain.ErrFailedToStart, serr))
		}
	}

	p.openHistory(password)

	pic, lerr := p.avatars.Load(core.PublicKey())
	if lerr != nil {
		p.log.Warn().Err(lerr).Msg("could not load own avatar, broadcasting none")
		pic = nil
	}
	if serr := p.SetAvatar(pic); serr != nil {
		p.log.Warn().Err(serr).Msg("could not restore own avatar")
	}
	return nil
}

// startupFailure classifies err for the event surface and returns it.
func (p *Profile) startupFailure(err error) error {
	if errors.Is(err, domain.ErrBadProxy) {
		if p.cfg.Events.BadProxy != nil {
			p.cfg.Events.BadProxy()
		}
	} else if p.cfg.Events.FailedToStart != nil {
		p.cfg.Events.FailedToStart(err)
	}
	return err
}

// teardown stops everything bootstrap started, in reverse order.
func (p *Profile) teardown() {
	if p.core != nil {
		p.core.Stop()
	}
	if p.av != nil {
		p.av.Stop()
	}
	if p.queue != nil {
		p.queue.Close()
	}
	if p.hist != nil {
		_ = p.hist.Close()
		p.hist = nil
	}
}

// openHistory opens the chat database. Failure disables logs for the
// session, never aborts the load.
func (p *Profile) openHistory(password string) {
	salt := p.core.PublicKey().Slice()
	h, err := history.Open(p.cfg.Paths.Database(p.name), password, salt, p.log)
	if err != nil {
		p.log.Warn().Err(err).Msg("could not open your chat logs, they will be disabled")
		return
	}
	p.hist = h
}

func (p *Profile) recordCurrentProfile() {
	if p.cfg.Global == nil {
		return
	}
	if err := p.cfg.Global.SetCurrentProfile(p.name); err != nil {
		p.log.Warn().Err(err).Msg("could not record current profile")
	}
}

// Name returns the profile name.
func (p *Profile) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// IsEncrypted reports whether the profile holds key material. It does not
// probe the file on disk; see the package-level IsEncrypted.
func (p *Profile) IsEncrypted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.key != nil
}

// IsRemoved reports whether Remove ran.
func (p *Profile) IsRemoved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removed
}

// Core returns the protocol core.
func (p *Profile) Core() domain.Core { return p.core }

// History returns the chat-log store, nil when logs are disabled.
func (p *Profile) History() *history.History {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hist
}

// Settings returns the per-profile settings, nil when they failed to load.
func (p *Profile) Settings() *settings.Profile { return p.personal }

// HistoryEnabled reports whether chat logs are both enabled in settings
// and successfully opened.
func (p *Profile) HistoryEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hist != nil && (p.personal == nil || p.personal.EnableLogging())
}

// Save serializes the core state and writes it, encrypted when the
// profile has a password.
func (p *Profile) Save() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveLocked()
}

func (p *Profile) saveLocked() error {
	if p.removed {
		return ErrProfileRemoved
	}
	data, err := p.core.SerializedState()
	if err != nil {
		return fmt.Errorf("serialize core state: %w", err)
	}
	return p.writeSaveLocked(data)
}

func (p *Profile) writeSaveLocked(data []byte) error {
	p.cfg.Locker.AssertLock(p.name)

	if p.key != nil {
		var err error
		if data, err = p.key.Encrypt(data); err != nil {
			// Never fall through to a plaintext write.
			return fmt.Errorf("encrypt save: %w", err)
		}
	}
	return store.WriteFileAtomic(p.cfg.Paths.Save(p.name), data, 0o600)
}

// Rename moves the profile to newName. The lock under newName is acquired
// before the old one is released, so the profile is never observably
// unlocked.
func (p *Profile) Rename(newName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.removed {
		return ErrProfileRemoved
	}
	if _, err := os.Stat(p.cfg.Paths.Save(newName)); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, p.cfg.Paths.Save(newName))
	}

	if err := p.guard.Relock(newName); err != nil {
		return fmt.Errorf("%w: %v", ErrProfileLocked, err)
	}

	oldName := p.name
	if err := os.Rename(p.cfg.Paths.Save(oldName), p.cfg.Paths.Save(newName)); err != nil {
		if rerr := p.guard.Relock(oldName); rerr != nil {
			p.log.Error().Err(rerr).Msg("could not restore lock after failed rename")
		}
		return fmt.Errorf("rename save file: %w", err)
	}

	if p.personal != nil {
		if err := p.personal.Rename(newName); err != nil {
			p.log.Warn().Err(err).Msg("could not rename settings file")
		}
	}
	if p.hist != nil {
		if err := p.hist.Rename(p.cfg.Paths.Database(newName)); err != nil {
			p.log.Warn().Err(err).Msg("could not rename history database")
		}
	}

	p.name = newName
	p.log = p.cfg.Log.With().Str("profile", newName).Logger()
	p.recordCurrentProfile()
	return nil
}

// Remove deletes the profile permanently and returns the paths that could
// not be deleted. The lock is released up front so the name frees up even
// when deletions partially fail. Repeated calls warn and do nothing.
func (p *Profile) Remove() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.removed {
		p.log.Warn().Msg("profile is already removed")
		return nil
	}
	p.removed = true
	p.log.Info().Msg("removing profile")

	p.guard.Release()

	var failed []string
	for _, path := range []string{p.cfg.Paths.Save(p.name), p.cfg.Paths.Settings(p.name)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.log.Warn().Err(err).Str("path", path).Msg("could not remove file")
			failed = append(failed, path)
		}
	}

	if p.hist != nil {
		if err := p.hist.Remove(); err != nil {
			dbPath := p.cfg.Paths.Database(p.name)
			p.log.Warn().Err(err).Str("path", dbPath).Msg("could not remove history database")
			failed = append(failed, dbPath)
		}
		p.hist = nil
	}
	return failed
}

// SetPassword changes the profile encryption wholesale. An empty password
// decrypts the profile. The save file and all cached avatars are rewritten
// under the new state; a history re-key failure is reported as
// ErrHistoryRekey without rolling the rest back.
func (p *Profile) SetPassword(newPassword string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.removed {
		return ErrProfileRemoved
	}

	var newKey *crypto.Passkey
	if newPassword != "" {
		var err error
		// Always a fresh key: salt and cost parameters are never reused.
		if newKey, err = crypto.NewKey(newPassword); err != nil {
			return fmt.Errorf("%w: %v", ErrKeyDerivation, err)
		}
	}

	// Read every cached avatar under the old key before it is replaced.
	owners := []domain.PublicKey{p.core.PublicKey()}
	for _, f := range p.core.Friends() {
		owners = append(owners, f.PublicKey)
	}
	pics := make(map[domain.PublicKey][]byte, len(owners))
	for _, owner := range owners {
		pic, err := p.avatars.Load(owner)
		if err != nil {
			p.log.Warn().Err(err).Stringer("owner", owner).Msg("could not read cached avatar for re-encryption")
			continue
		}
		if pic != nil {
			pics[owner] = pic
		}
	}

	p.key = newKey
	p.avatars.SetKey(newKey)

	if err := p.saveLocked(); err != nil {
		return err
	}
	for owner, pic := range pics {
		// Drop the copy under the old path before writing the new one.
		if err := p.avatars.Delete(owner); err != nil {
			p.log.Warn().Err(err).Stringer("owner", owner).Msg("could not drop old avatar cache file")
		}
		if err := p.avatars.Save(owner, pic); err != nil {
			p.log.Warn().Err(err).Stringer("owner", owner).Msg("could not re-encrypt cached avatar")
		}
	}

	if p.hist != nil {
		if err := p.hist.SetPassword(newPassword); err != nil {
			return fmt.Errorf("%w: %v", ErrHistoryRekey, err)
		}
	}
	return nil
}

// SetAvatar sets our own avatar and broadcasts it to online friends. An
// empty pic clears the avatar; consumers fall back to the identicon.
func (p *Profile) SetAvatar(pic []byte) error {
	p.mu.Lock()
	if p.removed {
		p.mu.Unlock()
		return ErrProfileRemoved
	}
	self := p.core.PublicKey()
	err := p.avatars.Save(self, pic)
	p.mu.Unlock()
	if err != nil {
		return err
	}

	p.cfg.Events.selfAvatarChanged(pic)
	p.bcast.SetAvatar(pic)
	return nil
}

// DeleteSelfAvatar clears our own avatar.
func (p *Profile) DeleteSelfAvatar() error { return p.SetAvatar(nil) }

// AvatarData returns the cached avatar for owner, nil when none exists.
func (p *Profile) AvatarData(owner domain.PublicKey) ([]byte, error) {
	return p.avatars.Load(owner)
}

// AvatarHash returns the content hash of owner's cached avatar.
func (p *Profile) AvatarHash(owner domain.PublicKey) []byte {
	return p.avatars.Hash(owner)
}

// setFriendAvatar is wired to the core's avatar-changed notification.
func (p *Profile) setFriendAvatar(friend domain.PublicKey, pic []byte) {
	if p.IsRemoved() {
		return
	}
	if err := p.avatars.Save(friend, pic); err != nil {
		p.log.Warn().Err(err).Stringer("friend", friend).Msg("could not cache avatar")
	}
	if len(pic) > 0 {
		p.cfg.Events.friendAvatarChanged(friend, pic)
	} else {
		p.cfg.Events.friendAvatarRemoved(friend)
	}
}

// removeFriendAvatar is wired to the core's avatar-removed notification.
func (p *Profile) removeFriendAvatar(friend domain.PublicKey) {
	if p.IsRemoved() {
		return
	}
	if err := p.avatars.Delete(friend); err != nil {
		p.log.Warn().Err(err).Stringer("friend", friend).Msg("could not delete cached avatar")
	}
	p.cfg.Events.friendAvatarRemoved(friend)
}

// onAvatarOffer decides an incoming transfer offer: accept only when the
// offered content differs from what is already cached. Runs on the task
// queue, strictly after the delivering core callback returned.
func (p *Profile) onAvatarOffer(friend domain.PublicKey, fileID uint32, hash []byte) {
	if p.IsRemoved() {
		return
	}
	accept := !bytes.Equal(p.avatars.Hash(friend), hash)
	if err := p.core.RespondAvatarOffer(friend, fileID, accept); err != nil {
		p.log.Warn().Err(err).Stringer("friend", friend).Msg("could not answer avatar offer")
	}
}

// onRequestSent records an outgoing friend request in the chat history.
func (p *Profile) onRequestSent(friend domain.PublicKey, message string) {
	p.mu.Lock()
	hist := p.hist
	enabled := hist != nil && (p.personal == nil || p.personal.EnableLogging())
	p.mu.Unlock()
	if !enabled {
		return
	}

	body := fmt.Sprintf("/me offers friendship, %q", message)
	if err := hist.AddMessage(friend, p.core.PublicKey(), p.core.Username(), time.Now(), body); err != nil {
		p.log.Warn().Err(err).Msg("could not record friend request")
	}
}

// Close persists the profile unless it was removed, stops the core and AV,
// drains the task queue and releases the lock.
func (p *Profile) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	var saveErr error
	if !p.removed {
		saveErr = p.saveLocked()
		if p.personal != nil {
			if err := p.personal.Save(); err != nil {
				p.log.Warn().Err(err).Msg("could not save profile settings")
			}
		}
	}
	hist := p.hist
	p.hist = nil
	p.mu.Unlock()

	p.core.Stop()
	p.av.Stop()
	p.queue.Close()
	if hist != nil {
		if err := hist.Close(); err != nil {
			p.log.Warn().Err(err).Msg("could not close history database")
		}
	}
	p.guard.Release()
	return saveErr
}

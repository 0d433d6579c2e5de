package core

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"waxwing/internal/crypto"
	"waxwing/internal/domain"
)

// eventBuffer bounds pending callback deliveries before producers block.
const eventBuffer = 64

var (
	// ErrFriendExists is returned when adding an address already in the
	// roster.
	ErrFriendExists = errors.New("friend already added")

	// ErrOwnAddress is returned when adding the core's own address.
	ErrOwnAddress = errors.New("cannot add own address")

	// ErrUnknownFriend is returned for operations on a key not in the
	// roster.
	ErrUnknownFriend = errors.New("friend not in roster")
)

type friendState struct {
	alias     string
	connected bool
}

// Core is the durable session state holder behind domain.Core.
type Core struct {
	secret domain.SecretKey
	public domain.PublicKey
	nospam domain.Nospam

	mu            sync.Mutex
	username      string
	statusMessage string
	friends       map[domain.PublicKey]*friendState
	cb            domain.CoreCallbacks

	running bool
	events  chan func()
	quit    chan struct{}
	done    chan struct{}

	// Test-visible transfer bookkeeping.
	offerResponses map[uint32]bool
	sentAvatars    map[domain.PublicKey][]byte
}

// saveData is the serialized form of a Core. Every other package treats
// the encoded bytes as opaque.
type saveData struct {
	SecretKey     string       `json:"secret_key"`
	PublicKey     string       `json:"public_key"`
	Nospam        string       `json:"nospam"`
	Username      string       `json:"username"`
	StatusMessage string       `json:"status_message"`
	Friends       []saveFriend `json:"friends,omitempty"`
}

type saveFriend struct {
	PublicKey string `json:"public_key"`
	Alias     string `json:"alias,omitempty"`
}

// New builds a Core from serialized state. Empty saveBytes means a fresh
// identity. Failures are classified: domain.ErrBadProxy for a rejected
// transport configuration, domain.ErrInvalidSave for unparseable or
// inconsistent state, domain.ErrCoreAlloc when key generation fails.
func New(saveBytes []byte, opts domain.CoreOptions) (*Core, error) {
	if opts.ProxyType != domain.ProxyNone && (opts.ProxyHost == "" || opts.ProxyPort == 0) {
		return nil, fmt.Errorf("%w: %q:%d", domain.ErrBadProxy, opts.ProxyHost, opts.ProxyPort)
	}

	c := &Core{
		friends:        make(map[domain.PublicKey]*friendState),
		offerResponses: make(map[uint32]bool),
		sentAvatars:    make(map[domain.PublicKey][]byte),
	}

	if len(saveBytes) == 0 {
		var err error
		c.secret, c.public, err = crypto.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("%w: generate identity: %v", domain.ErrCoreAlloc, err)
		}
		if _, err := rand.Read(c.nospam[:]); err != nil {
			return nil, fmt.Errorf("%w: generate nospam: %v", domain.ErrCoreAlloc, err)
		}
		return c, nil
	}

	var sd saveData
	if err := json.Unmarshal(saveBytes, &sd); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSave, err)
	}
	if err := c.restore(sd); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Core) restore(sd saveData) error {
	sk, err := hex.DecodeString(sd.SecretKey)
	if err != nil || len(sk) != domain.SecretKeySize {
		return fmt.Errorf("%w: bad secret key", domain.ErrInvalidSave)
	}
	copy(c.secret[:], sk)

	c.public, err = crypto.PublicFromSecret(c.secret)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSave, err)
	}
	// The stored public key must match the secret it was saved with.
	if stored, err := domain.ParsePublicKey(sd.PublicKey); err != nil || stored != c.public {
		return fmt.Errorf("%w: public key mismatch", domain.ErrInvalidSave)
	}

	ns, err := hex.DecodeString(sd.Nospam)
	if err != nil || len(ns) != domain.NospamSize {
		return fmt.Errorf("%w: bad nospam", domain.ErrInvalidSave)
	}
	copy(c.nospam[:], ns)

	c.username = sd.Username
	c.statusMessage = sd.StatusMessage
	for _, f := range sd.Friends {
		pk, err := domain.ParsePublicKey(f.PublicKey)
		if err != nil {
			return fmt.Errorf("%w: friend key: %v", domain.ErrInvalidSave, err)
		}
		c.friends[pk] = &friendState{alias: f.Alias}
	}
	return nil
}

// PublicKey returns the identity public key.
func (c *Core) PublicKey() domain.PublicKey { return c.public }

// Address returns the full shareable contact address.
func (c *Core) Address() domain.Address { return domain.MakeAddress(c.public, c.nospam) }

// Username returns the display name.
func (c *Core) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// SetUsername updates the display name and requests a save.
func (c *Core) SetUsername(name string) {
	c.mu.Lock()
	changed := name != c.username
	c.username = name
	c.mu.Unlock()
	if changed {
		c.requestSave()
	}
}

// StatusMessage returns the status text.
func (c *Core) StatusMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusMessage
}

// SetStatusMessage updates the status text and requests a save.
func (c *Core) SetStatusMessage(msg string) {
	c.mu.Lock()
	changed := msg != c.statusMessage
	c.statusMessage = msg
	c.mu.Unlock()
	if changed {
		c.requestSave()
	}
}

// SerializedState returns the opaque durable state for the save file.
func (c *Core) SerializedState() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sd := saveData{
		SecretKey:     hex.EncodeToString(c.secret.Slice()),
		PublicKey:     c.public.Hex(),
		Nospam:        hex.EncodeToString(c.nospam[:]),
		Username:      c.username,
		StatusMessage: c.statusMessage,
	}
	for pk, f := range c.friends {
		sd.Friends = append(sd.Friends, saveFriend{PublicKey: pk.Hex(), Alias: f.alias})
	}
	// Deterministic output keeps repeated saves byte-identical.
	sort.Slice(sd.Friends, func(i, j int) bool { return sd.Friends[i].PublicKey < sd.Friends[j].PublicKey })
	return json.Marshal(sd)
}

// Friends returns the roster, sorted by public key.
func (c *Core) Friends() []domain.Friend {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Friend, 0, len(c.friends))
	for pk, f := range c.friends {
		out = append(out, domain.Friend{PublicKey: pk, Alias: f.alias, Connected: f.connected})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublicKey.Hex() < out[j].PublicKey.Hex() })
	return out
}

// AddFriend adds addr to the roster and issues a friend request carrying
// message.
func (c *Core) AddFriend(addr domain.Address, message string) (domain.Friend, error) {
	pk := addr.PublicKey()
	if pk == c.public {
		return domain.Friend{}, ErrOwnAddress
	}

	c.mu.Lock()
	if _, ok := c.friends[pk]; ok {
		c.mu.Unlock()
		return domain.Friend{}, ErrFriendExists
	}
	c.friends[pk] = &friendState{}
	c.mu.Unlock()

	c.requestSave()
	c.dispatch(func(cb domain.CoreCallbacks) {
		if cb.FriendRequestSent != nil {
			cb.FriendRequestSent(pk, message)
		}
	})
	return domain.Friend{PublicKey: pk}, nil
}

// SendAvatar transmits pic to one connected friend.
func (c *Core) SendAvatar(friend domain.PublicKey, pic []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.friends[friend]; !ok {
		return ErrUnknownFriend
	}
	c.sentAvatars[friend] = append([]byte(nil), pic...)
	return nil
}

// RespondAvatarOffer answers an avatar transfer offer. Safe to call from
// outside the delivering callback only; see domain.CoreCallbacks.
func (c *Core) RespondAvatarOffer(friend domain.PublicKey, fileID uint32, accept bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.friends[friend]; !ok {
		return ErrUnknownFriend
	}
	c.offerResponses[fileID] = accept
	return nil
}

// OfferResponse reports the recorded answer for a transfer offer.
func (c *Core) OfferResponse(fileID uint32) (accept, answered bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	accept, answered = c.offerResponses[fileID]
	return accept, answered
}

// SentAvatar returns the last avatar transmitted to friend, or nil.
func (c *Core) SentAvatar(friend domain.PublicKey) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sentAvatars[friend]
}

// SetCallbacks registers the notification handlers. Call before Start.
func (c *Core) SetCallbacks(cb domain.CoreCallbacks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb = cb
}

// Start launches the processing loop. Callbacks registered via
// SetCallbacks are delivered from it until Stop.
func (c *Core) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("%w: already started", domain.ErrFailedToStart)
	}
	c.events = make(chan func(), eventBuffer)
	c.quit = make(chan struct{})
	c.done = make(chan struct{})
	c.running = true
	go c.loop(c.events, c.quit, c.done)
	return nil
}

func (c *Core) loop(events chan func(), quit, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev := <-events:
			ev()
		case <-quit:
			// Drain whatever was queued before the stop.
			for {
				select {
				case ev := <-events:
					ev()
				default:
					return
				}
			}
		}
	}
}

// Stop shuts the processing loop down after draining pending deliveries.
// Safe to call when not started.
func (c *Core) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.quit)
	done := c.done
	c.mu.Unlock()
	<-done
}

// SetFriendConnected models a connectivity change arriving from the
// transport.
func (c *Core) SetFriendConnected(friend domain.PublicKey, online bool) error {
	c.mu.Lock()
	f, ok := c.friends[friend]
	if !ok {
		c.mu.Unlock()
		return ErrUnknownFriend
	}
	f.connected = online
	c.mu.Unlock()

	c.dispatch(func(cb domain.CoreCallbacks) {
		if cb.FriendOnline != nil {
			cb.FriendOnline(friend, online)
		}
	})
	return nil
}

// ReceiveFriendAvatar models a completed incoming avatar transfer.
func (c *Core) ReceiveFriendAvatar(friend domain.PublicKey, pic []byte) {
	c.dispatch(func(cb domain.CoreCallbacks) {
		if cb.FriendAvatarChanged != nil {
			cb.FriendAvatarChanged(friend, pic)
		}
	})
}

// ReceiveFriendAvatarRemoved models a contact clearing their avatar.
func (c *Core) ReceiveFriendAvatarRemoved(friend domain.PublicKey) {
	c.dispatch(func(cb domain.CoreCallbacks) {
		if cb.FriendAvatarRemoved != nil {
			cb.FriendAvatarRemoved(friend)
		}
	})
}

// ReceiveAvatarOffer models an incoming avatar transfer offer.
func (c *Core) ReceiveAvatarOffer(friend domain.PublicKey, fileID uint32, hash []byte, size uint64) {
	c.dispatch(func(cb domain.CoreCallbacks) {
		if cb.AvatarOfferReceived != nil {
			cb.AvatarOfferReceived(friend, fileID, hash, size)
		}
	})
}

func (c *Core) requestSave() {
	c.dispatch(func(cb domain.CoreCallbacks) {
		if cb.SaveRequested != nil {
			cb.SaveRequested()
		}
	})
}

// dispatch hands fn to the loop, or runs it inline before Start so early
// setup still observes its notifications.
func (c *Core) dispatch(fn func(domain.CoreCallbacks)) {
	c.mu.Lock()
	cb := c.cb
	if !c.running {
		c.mu.Unlock()
		fn(cb)
		return
	}
	events, quit := c.events, c.quit
	c.mu.Unlock()
	select {
	case events <- func() { fn(cb) }:
	case <-quit:
		// Stopped while enqueueing; the notification is dropped.
	}
}

// Compile-time assertion that Core implements domain.Core.
var _ domain.Core = (*Core)(nil)

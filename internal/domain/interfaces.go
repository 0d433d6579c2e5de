package domain

// CoreCallbacks are the notifications a core delivers from its own loop.
// Nil members are skipped. Handlers must not call back into the core
// synchronously unless the callback is documented as safe for it.
type CoreCallbacks struct {
	// SaveRequested fires when durable core state changed and should be
	// re-serialized and persisted.
	SaveRequested func()

	// FriendAvatarChanged fires when a contact finished sending a new avatar.
	FriendAvatarChanged func(friend PublicKey, pic []byte)

	// FriendAvatarRemoved fires when a contact cleared their avatar.
	FriendAvatarRemoved func(friend PublicKey)

	// AvatarOfferReceived fires when a contact offers an avatar transfer.
	// The handler decides acceptance via Core.RespondAvatarOffer and must
	// do so from outside the delivering callback.
	AvatarOfferReceived func(friend PublicKey, fileID uint32, hash []byte, size uint64)

	// FriendOnline fires on contact connectivity changes.
	FriendOnline func(friend PublicKey, online bool)

	// FriendRequestSent fires after an outgoing friend request was issued.
	FriendRequestSent func(friend PublicKey, message string)
}

// Core is the protocol session owned by a profile. Implementations run
// their own processing loop between Start and Stop and deliver callbacks
// from that loop.
type Core interface {
	PublicKey() PublicKey
	Address() Address

	Username() string
	SetUsername(name string)
	StatusMessage() string
	SetStatusMessage(msg string)

	// SerializedState returns the opaque durable state written to the
	// profile save file.
	SerializedState() ([]byte, error)

	Friends() []Friend
	AddFriend(addr Address, message string) (Friend, error)
	SendAvatar(friend PublicKey, pic []byte) error
	RespondAvatarOffer(friend PublicKey, fileID uint32, accept bool) error

	SetCallbacks(cb CoreCallbacks)
	Start() error
	Stop()
}

// AV is the audio/video extension bound to a running core.
type AV interface {
	Start() error
	Stop()
}

// CoreFactory builds a core from serialized state. Empty saveData means a
// brand-new identity. Errors are one of ErrBadProxy, ErrCoreAlloc,
// ErrInvalidSave or ErrFailedToStart.
type CoreFactory func(saveData []byte, opts CoreOptions) (Core, error)

// AVFactory attaches an AV extension to a core.
type AVFactory func(core Core) (AV, error)

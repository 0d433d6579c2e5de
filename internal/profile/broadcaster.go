package profile

import (
	"sync"

	"github.com/rs/zerolog"

	"waxwing/internal/domain"
)

// broadcaster pushes the profile's own avatar to friends: to everyone
// online when the avatar changes, and to each friend as they come online,
// at most once per friend per avatar.
type broadcaster struct {
	core domain.Core
	log  zerolog.Logger

	mu     sync.Mutex
	avatar []byte
	sentTo map[domain.PublicKey]bool
}

func newBroadcaster(core domain.Core, log zerolog.Logger) *broadcaster {
	return &broadcaster{core: core, log: log, sentTo: make(map[domain.PublicKey]bool)}
}

// SetAvatar replaces the broadcast picture and re-sends it to every online
// friend.
func (b *broadcaster) SetAvatar(pic []byte) {
	b.mu.Lock()
	b.avatar = append([]byte(nil), pic...)
	b.sentTo = make(map[domain.PublicKey]bool)
	b.mu.Unlock()

	for _, f := range b.core.Friends() {
		if f.Connected {
			b.sendTo(f.PublicKey)
		}
	}
}

// FriendOnline is wired to the core's connectivity notifications.
func (b *broadcaster) FriendOnline(friend domain.PublicKey, online bool) {
	if online {
		b.sendTo(friend)
	}
}

func (b *broadcaster) sendTo(friend domain.PublicKey) {
	b.mu.Lock()
	if b.sentTo[friend] {
		b.mu.Unlock()
		return
	}
	b.sentTo[friend] = true
	pic := b.avatar
	b.mu.Unlock()

	if err := b.core.SendAvatar(friend, pic); err != nil {
		b.log.Warn().Err(err).Stringer("friend", friend).Msg("avatar broadcast failed")
	}
}

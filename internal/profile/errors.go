package profile

import "errors"

// The closed set of failures crossing the profile boundary. Lower-level
// codec, lock and file errors are translated into one of these; callers
// branch with errors.Is. Core startup additionally surfaces the classified
// sentinels from internal/domain.
var (
	// ErrProfileLocked means the name is in use, by this process or by
	// another running instance.
	ErrProfileLocked = errors.New("profile is locked")

	// ErrSaveNotFound means no save file exists for the name.
	ErrSaveNotFound = errors.New("save file not found")

	// ErrSaveRead means the save file exists but could not be read.
	ErrSaveRead = errors.New("save file could not be read")

	// ErrSaveEmpty means the save file exists but holds no data.
	ErrSaveEmpty = errors.New("save file is empty")

	// ErrEncryptedNoPassword means the save file is encrypted and no
	// password was supplied.
	ErrEncryptedNoPassword = errors.New("save file is encrypted, no password given")

	// ErrPasswordUnexpected means a password was supplied for an
	// unencrypted save file. Treated as a hard error so a caller who
	// believes the profile is protected never proceeds on plaintext.
	ErrPasswordUnexpected = errors.New("save file is not encrypted, password given")

	// ErrKeyDerivation means the KDF failed, as opposed to a merely wrong
	// password, which surfaces as ErrDecryptionFailed.
	ErrKeyDerivation = errors.New("could not derive key from password")

	// ErrDecryptionFailed means authentication failed: wrong password or
	// corrupted save data.
	ErrDecryptionFailed = errors.New("could not decrypt save file")

	// ErrAlreadyExists means Create found a save file for the name.
	ErrAlreadyExists = errors.New("profile already exists")

	// ErrProfileRemoved means the operation is invalid on a removed
	// profile.
	ErrProfileRemoved = errors.New("profile is removed")

	// ErrHistoryRekey means the history database could not be moved to
	// the new password; save file and avatars already use it.
	ErrHistoryRekey = errors.New("could not change history database password")
)

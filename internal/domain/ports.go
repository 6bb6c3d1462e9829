package domain

import "context"

// ContentProvider supplies the static bilingual content. Implementations
// can be embedded files, a directory on disk, or a remote catalogue.
type ContentProvider interface {
	FixedPrayers(lang Language) (*FixedPrayers, error)
	Mysteries(lang Language, mystery MysteryType) (*MysterySet, error)
	MysteryMeta(mystery MysteryType) (*MysteryMeta, error)
	IntroImage() string
	ClosingImage() string
}

// KVStore is the key-value persistence boundary. Values are JSON documents.
// Implementations can be in-memory, SQLite, or any other backend.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Speaker is the speech capability. Speak plays the segments strictly in
// order on one channel and returns after the last one finishes; Stop
// interrupts whatever is playing.
type Speaker interface {
	Speak(ctx context.Context, segments []Segment) error
	Stop()
}

// CommandParser converts raw user input into structured commands.
type CommandParser interface {
	Parse(ctx context.Context, input string) (*Command, error)
}

// Notifier delivers messages to the user.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

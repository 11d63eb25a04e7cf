// Package chain describes the read-only ChatRoom contract surface the chat
// service depends on.
//
// Every read has three outcomes: a value, ErrNotChatRoom when the address is
// not a conforming contract (the call reverted or there is no code there), or
// ErrUnavailable when the node could not answer. Callers must never treat
// ErrUnavailable as a negative answer.
package chain

import (
	"context"
	"errors"
	"math/big"
)

var (
	ErrNotChatRoom    = errors.New("address is not a chat-room contract")
	ErrUnavailable    = errors.New("chain is unavailable")
	ErrInvalidAddress = errors.New("invalid address")
)

// Reader is implemented by chain backends.
type Reader interface {
	RoomName(ctx context.Context, contract string) (string, error)
	// JoinFee is denominated in wei.
	JoinFee(ctx context.Context, contract string) (*big.Int, error)
	RoomCreator(ctx context.Context, contract string) (string, error)
	// HasJoined reports false when the contract reverts.
	HasJoined(ctx context.Context, contract string, wallet string) (bool, error)
	// IsChatRoom compares the contract tag with the expected sentinel. A
	// revert or a missing contract is reported as false.
	IsChatRoom(ctx context.Context, contract string) (bool, error)
}

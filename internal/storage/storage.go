package storage

import "errors"

var (
	ErrUserNotFound          = errors.New("user with this wallet address does not found")
	ErrUserAlreadyExists     = errors.New("user with this wallet address already exists")
	ErrChannelNotFound       = errors.New("channel with this id does not found")
	ErrContractAlreadyLinked = errors.New("contract address already linked to a channel")
	ErrAlreadyMember         = errors.New("user is already a member of the channel")
	ErrMessageNotFound       = errors.New("message with this id does not found")
	ErrCacheMiss             = errors.New("cache miss")
)

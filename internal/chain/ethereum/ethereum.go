package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/AlexMickh/exoterra-chat/internal/chain"
	"github.com/AlexMickh/exoterra-chat/internal/metrics"
	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// ContractCaller is the part of ethclient.Client the reader needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg geth.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

type Reader struct {
	caller  ContractCaller
	abi     abi.ABI
	tag     string
	timeout time.Duration
}

var _ chain.Reader = (*Reader)(nil)

func New(caller ContractCaller, tag string, timeout time.Duration) (*Reader, error) {
	const op = "chain.ethereum.New"

	parsed, err := abi.JSON(strings.NewReader(chatRoomABI))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Reader{
		caller:  caller,
		abi:     parsed,
		tag:     tag,
		timeout: timeout,
	}, nil
}

func (r *Reader) RoomName(ctx context.Context, contract string) (string, error) {
	const op = "chain.ethereum.RoomName"

	out, err := r.call(ctx, contract, methodRoomName)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	name, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: %w: unexpected output %T", op, chain.ErrUnavailable, out[0])
	}

	return name, nil
}

func (r *Reader) JoinFee(ctx context.Context, contract string) (*big.Int, error) {
	const op = "chain.ethereum.JoinFee"

	out, err := r.call(ctx, contract, methodJoinFee)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fee, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: %w: unexpected output %T", op, chain.ErrUnavailable, out[0])
	}

	return fee, nil
}

func (r *Reader) RoomCreator(ctx context.Context, contract string) (string, error) {
	const op = "chain.ethereum.RoomCreator"

	out, err := r.call(ctx, contract, methodRoomCreator)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	creator, ok := out[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("%s: %w: unexpected output %T", op, chain.ErrUnavailable, out[0])
	}

	return creator.Hex(), nil
}

func (r *Reader) HasJoined(ctx context.Context, contract string, wallet string) (bool, error) {
	const op = "chain.ethereum.HasJoined"

	if !common.IsHexAddress(wallet) {
		return false, fmt.Errorf("%s: %w: %s", op, chain.ErrInvalidAddress, wallet)
	}

	out, err := r.call(ctx, contract, methodJoinedUsers, common.HexToAddress(wallet))
	if errors.Is(err, chain.ErrNotChatRoom) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	joined, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s: %w: unexpected output %T", op, chain.ErrUnavailable, out[0])
	}

	return joined, nil
}

func (r *Reader) IsChatRoom(ctx context.Context, contract string) (bool, error) {
	const op = "chain.ethereum.IsChatRoom"

	out, err := r.call(ctx, contract, methodTag)
	if errors.Is(err, chain.ErrNotChatRoom) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	tag, ok := out[0].(string)
	if !ok {
		return false, nil
	}

	return tag == r.tag, nil
}

func (r *Reader) call(ctx context.Context, contract string, method string, args ...any) (out []any, err error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("%w: %s", chain.ErrInvalidAddress, contract)
	}
	to := common.HexToAddress(contract)

	input, err := r.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	start := time.Now()
	defer func() {
		metrics.ChainCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		metrics.ChainCalls.WithLabelValues(method, outcome(err)).Inc()
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.caller.CallContract(ctx, geth.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		if isRevert(err) {
			return nil, fmt.Errorf("%s: %w", method, chain.ErrNotChatRoom)
		}
		return nil, fmt.Errorf("%s: %w: %w", method, chain.ErrUnavailable, err)
	}

	// An empty result means either no code at the address or a contract
	// without this method and a silent fallback.
	if len(data) == 0 {
		if _, err := r.caller.CodeAt(ctx, to, nil); err != nil {
			return nil, fmt.Errorf("%s: code: %w: %w", method, chain.ErrUnavailable, err)
		}
		return nil, fmt.Errorf("%s: %w", method, chain.ErrNotChatRoom)
	}

	out, err = r.abi.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", method, chain.ErrUnavailable, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w: empty output", method, chain.ErrUnavailable)
	}

	return out, nil
}

// isRevert reports whether err is the node rejecting the call as reverted.
// Every JSON-RPC error carries ErrorData, so only hex revert data or the
// "execution reverted" message count; rate limits and missing state do not.
func isRevert(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := dataErr.ErrorData().(string); ok && isHexData(data) {
			return true
		}
	}

	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

func isHexData(s string) bool {
	_, err := hexutil.Decode(s)
	return err == nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, chain.ErrNotChatRoom):
		return "not_chat_room"
	default:
		return "unavailable"
	}
}

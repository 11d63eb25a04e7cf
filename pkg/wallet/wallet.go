// Package wallet verifies wallet-signed login messages.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrInvalidAddress   = errors.New("invalid wallet address")
	ErrInvalidSignature = errors.New("invalid signature")
)

// LoginMessage is the text a wallet signs to log in.
func LoginMessage(walletAddress string) string {
	return fmt.Sprintf("Login request for wallet: %s", walletAddress)
}

// Normalize returns the lookup form of an address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsAddress reports whether address is a 20 byte hex address.
func IsAddress(address string) bool {
	return common.IsHexAddress(strings.TrimSpace(address))
}

// RecoverAddress returns the address whose key produced sig over msg, using
// the personal_sign (EIP-191) prefix.
func RecoverAddress(msg string, sig string) (common.Address, error) {
	if !strings.HasPrefix(sig, "0x") && !strings.HasPrefix(sig, "0X") {
		sig = "0x" + sig
	}

	raw, err := hexutil.Decode(sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if len(raw) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(raw))
	}

	// Wallets produce V as 27/28, SigToPub expects 0/1.
	if raw[crypto.RecoveryIDOffset] >= 27 {
		raw[crypto.RecoveryIDOffset] -= 27
	}
	if raw[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, fmt.Errorf("%w: bad recovery id", ErrInvalidSignature)
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(msg)), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyLogin checks that sig is walletAddress's signature of its login
// message.
func VerifyLogin(walletAddress string, sig string) error {
	if !IsAddress(walletAddress) {
		return ErrInvalidAddress
	}

	signer, err := RecoverAddress(LoginMessage(walletAddress), sig)
	if err != nil {
		return err
	}

	if !strings.EqualFold(signer.Hex(), strings.TrimSpace(walletAddress)) {
		return ErrInvalidSignature
	}

	return nil
}

// SignLogin signs the login message for walletAddress the way a browser
// wallet does.
func SignLogin(key *ecdsa.PrivateKey, walletAddress string) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(LoginMessage(walletAddress))), key)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig), nil
}

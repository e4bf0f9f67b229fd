package httpservice

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lightningnetwork/lnd/clock"
)

// Requests spending tokens or quote currency of an account must be signed by
// that account. The signature is an EIP-191 personal signature of the message
// built by signedMessage.

const maxSignatureValidity = 10 * time.Minute

var (
	errInvalidSignature  = errors.New("invalid signature")
	errExpiredSignature  = errors.New("signature expired")
	errReplayedSignature = errors.New("signature already used")
)

// signedRequest is embedded in the body of every signed request.
type signedRequest struct {
	Deadline  int64  `json:"deadline" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// signedMessage lists the action, its parameters as "key: value" lines
// and the deadline after which the signature is rejected.
func signedMessage(action string, deadline int64, params ...string) string {
	lines := []string{"crowdsale " + action}
	for i := 0; i+1 < len(params); i += 2 {
		lines = append(lines, fmt.Sprintf("%s: %s", params[i], params[i+1]))
	}
	lines = append(lines, fmt.Sprintf("deadline: %d", deadline))
	return strings.Join(lines, "\n")
}

type signatureVerifier struct {
	clock clock.Clock
	lock  *sync.Mutex
	// message hash -> deadline of the signatures already accepted.
	used map[common.Hash]int64
}

func newSignatureVerifier(c clock.Clock) *signatureVerifier {
	return &signatureVerifier{
		clock: c,
		lock:  &sync.Mutex{},
		used:  make(map[common.Hash]int64),
	}
}

// verify checks that message was signed by account before deadline and was
// not accepted before.
func (v *signatureVerifier) verify(
	account common.Address, message string, req signedRequest,
) error {
	now := v.clock.Now().Unix()
	if req.Deadline < now {
		return errExpiredSignature
	}
	if req.Deadline > now+int64(maxSignatureValidity/time.Second) {
		return fmt.Errorf(
			"%w: deadline must be within %s", errInvalidSignature, maxSignatureValidity,
		)
	}

	sig, err := hexutil.Decode(req.Signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: malformed", errInvalidSignature)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := accounts.TextHash([]byte(message))
	pubkey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("%w: %s", errInvalidSignature, err)
	}
	if signer := crypto.PubkeyToAddress(*pubkey); signer != account {
		return fmt.Errorf("%w: not signed by %s", errInvalidSignature, account.Hex())
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	for h, deadline := range v.used {
		if deadline < now {
			delete(v.used, h)
		}
	}
	key := common.BytesToHash(hash)
	if _, ok := v.used[key]; ok {
		return errReplayedSignature
	}
	v.used[key] = req.Deadline
	return nil
}

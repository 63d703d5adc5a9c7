package chat

import (
	"fmt"
	"strconv"
	"time"
)

// maxMissedAcks is the number of unacknowledged heartbeats tolerated.
const maxMissedAcks = 2

// heartbeat tracks liveness of the peer. It is owned by the inbound actor.
type heartbeat struct {
	interval time.Duration
	sent     uint64
	acked    uint64
}

// tick advances the sent counter and returns the nonce of the next PING.
func (h *heartbeat) tick() (string, error) {
	h.sent++
	if h.sent-h.acked > maxMissedAcks {
		return "", fmt.Errorf("%w: sent %d, acknowledged %d", ErrHeartbeatTimeout, h.sent, h.acked)
	}
	return strconv.FormatUint(h.sent, 10), nil
}

// ack applies a PONG. It reports whether the acknowledged counter advanced;
// the error is set only for nonces that are not a counter.
func (h *heartbeat) ack(nonce string, gap uint64) (bool, error) {
	n, err := strconv.ParseUint(nonce, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse heartbeat nonce %q: %w", nonce, err)
	}
	if n <= h.acked {
		return false, nil
	}

	h.acked = n
	if gap > 0 {
		h.interval = time.Duration(gap) * time.Second
	}
	return true, nil
}

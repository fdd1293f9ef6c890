package types

// SlotInfo describes the next scheduled jito-solana leader relative to the
// slot the block engine currently sees. Created fresh on every probe call.
type SlotInfo struct {
	CurrentSlot        uint64 `json:"currentSlot"`
	NextLeaderSlot     uint64 `json:"nextLeaderSlot"`
	NextLeaderIdentity string `json:"nextLeaderIdentity"`
	NextLeaderRegion   string `json:"nextLeaderRegion"`
}

// SlotsUntil returns how many slots away the next leader is. Advisory only:
// the distance can shrink between probes because of network latency.
func (s *SlotInfo) SlotsUntil() uint64 {
	if s.NextLeaderSlot < s.CurrentSlot {
		return 0
	}
	return s.NextLeaderSlot - s.CurrentSlot
}

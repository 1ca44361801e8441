package parties

// ComputeStatus derives the party status from its proposals and gift. The
// result is never stored.
func ComputeStatus(snapshot Snapshot) Status {
	if snapshot.Gift != nil && snapshot.Gift.PurchasedAt != nil {
		return StatusPurchased
	}
	if snapshot.Gift != nil {
		return StatusDecided
	}
	for _, proposal := range snapshot.Proposals {
		if proposal.IsSelected {
			return StatusDecided
		}
	}
	if len(snapshot.Proposals) > 0 {
		return StatusVoting
	}
	return StatusPending
}

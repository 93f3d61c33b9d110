package models

// All lists every table in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&MissionProgress{},
		&MissionActivity{},
		&XPLedgerEntry{},
		&Challenge{},
		&ChallengeEntry{},
		&ChallengeVote{},
	}
}

package persist

import "github.com/zoobzio/capitan"

// Persistence signals.
var (
	// CheckpointWritten is emitted when a checkpoint replaces the journal.
	CheckpointWritten = capitan.NewSignal(
		"reflux.persist.checkpoint",
		"Checkpoint written",
	)

	// WriteFailed is emitted when a checkpoint or journal write fails and
	// the store has been cleared.
	WriteFailed = capitan.NewSignal(
		"reflux.persist.failed",
		"Persistence write failed",
	)

	// StateRestored is emitted when a restore succeeds.
	StateRestored = capitan.NewSignal(
		"reflux.persist.restored",
		"State restored",
	)

	// RestoreFailed is emitted when a restore yields no state.
	RestoreFailed = capitan.NewSignal(
		"reflux.persist.restore.failed",
		"State restore failed",
	)
)

// Field keys for persistence events.
var (
	// KeyCount is the number of journal entries.
	KeyCount = capitan.NewIntKey("count")

	// KeyStage is the persistence step that failed.
	KeyStage = capitan.NewStringKey("stage")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")
)

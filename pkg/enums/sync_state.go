package enums

// SyncState is the cart synchronizer lifecycle state.
type SyncState string

const (
	SyncStateIdle    SyncState = "idle"
	SyncStateLoading SyncState = "loading"
	SyncStateSyncing SyncState = "syncing"
)

func (s SyncState) String() string {
	return string(s)
}

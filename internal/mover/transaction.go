package mover

// State is the furthest step an asset reached.
type State string

const (
	StateDiscovered          State = "discovered"
	StatePathResolved        State = "path_resolved"
	StateDestinationComputed State = "destination_computed"
	StateMoved               State = "moved"
	StateDeleted             State = "deleted"
	StateFailed              State = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StateDeleted || s == StateFailed
}

// Failure messages recorded on transactions.
const (
	ErrMsgNoOriginalPath = "no original path"
	ErrMsgNoMapping      = "no path mapping found"
	ErrMsgNoDestination  = "could not calculate destination"
	ErrMsgMoveFailed     = "move failed"
	ErrMsgDeleteFailed   = "delete failed"
)

// Transaction records what happened to one asset.
type Transaction struct {
	AssetID         string `json:"asset_id"`
	RemotePath      string `json:"remote_path"`
	SourcePath      string `json:"source_path,omitempty"`
	DestPath        string `json:"dest_path,omitempty"`
	MoveSucceeded   bool   `json:"move_success"`
	DeleteSucceeded bool   `json:"delete_success"`
	State           State  `json:"state"`
	ErrorKind       string `json:"error_kind,omitempty"`
	Error           string `json:"error,omitempty"`
}

// advance moves the transaction forward unless it already finished.
func (t *Transaction) advance(next State) {
	if t.State.Terminal() {
		return
	}
	t.State = next
}

func (t *Transaction) fail(kind, msg string) {
	if t.State.Terminal() {
		return
	}
	t.State = StateFailed
	t.ErrorKind = kind
	t.Error = msg
}

// Summary counts outcomes for a run. Moved and Deleted may both count the
// same asset; Failed counts assets that ended in StateFailed.
type Summary struct {
	Total   int `json:"total"`
	Moved   int `json:"moved"`
	Failed  int `json:"failed"`
	Deleted int `json:"deleted"`
}

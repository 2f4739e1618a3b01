package request

import (
	"github.com/jdibridge/bridge/pkg/correlation"
	"github.com/jdibridge/bridge/pkg/jdiarg"
	"github.com/jdibridge/bridge/pkg/nativeconn"
)

// Record is the manager's view of a single live request (§3 RequestRecord).
type Record[K comparable] struct {
	ID     correlation.UniqueID
	Key    K
	Native nativeconn.Handle
	Args   []jdiarg.RequestArg
}

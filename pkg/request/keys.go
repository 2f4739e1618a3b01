package request

import (
	"fmt"

	"github.com/jdibridge/bridge/pkg/nativeconn"
)

// Natural-key shapes (§3 RequestKey). Class/method-scoped kinds carry the
// fields a caller would naturally specify; kinds with at most one canonical
// request per argument-set use UnitKey — de-duplication for those happens
// at the memoization layer (pkg/profile), not via the natural key.

type BreakpointKey struct {
	FileName   string
	LineNumber int
}

func (k BreakpointKey) String() string { return fmt.Sprintf("%s:%d", k.FileName, k.LineNumber) }

type MethodKey struct {
	ClassName  string
	MethodName string
}

func (k MethodKey) String() string { return k.ClassName + "#" + k.MethodName }

type ExceptionKey struct {
	ExceptionClassName string
	NotifyCaught       bool
	NotifyUncaught     bool
}

func (k ExceptionKey) String() string {
	return fmt.Sprintf("%s[caught=%t,uncaught=%t]", k.ExceptionClassName, k.NotifyCaught, k.NotifyUncaught)
}

type WatchpointKey struct {
	ClassName string
	FieldName string
}

func (k WatchpointKey) String() string { return k.ClassName + "." + k.FieldName }

type StepKey struct {
	ThreadID string
	Size     nativeconn.StepSize
	Depth    nativeconn.StepDepth
}

func (k StepKey) String() string {
	return fmt.Sprintf("%s[size=%d,depth=%d]", k.ThreadID, k.Size, k.Depth)
}

// UnitKey is the natural key for kinds with at most one canonical request
// per distinct argument set (monitor-*, class-prepare/unload,
// thread-start/death, vm-lifecycle).
type UnitKey struct{}

func (UnitKey) String() string { return "(unit)" }

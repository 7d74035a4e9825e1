// Package script runs battle hook scripts in a pool of sandboxed goja VMs.
package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// ErrTimeout is returned when a script exceeds the execution time limit.
var ErrTimeout = errors.New("script: execution timed out")

// ErrPanic is returned when the VM panics while running a script.
var ErrPanic = errors.New("script: vm panic")

// VMPool is a thread-safe pool of pre-initialised goja runtimes.
type VMPool struct {
	pool    chan *goja.Runtime
	timeout time.Duration
	logger  *zap.Logger
}

// NewVMPool creates a VMPool with the given concurrency size and per-call timeout.
func NewVMPool(size int, timeout time.Duration, logger *zap.Logger) *VMPool {
	if size <= 0 {
		size = 4
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &VMPool{
		pool:    make(chan *goja.Runtime, size),
		timeout: timeout,
		logger:  logger,
	}
	for i := 0; i < size; i++ {
		p.pool <- newSafeVM()
	}
	return p
}

// Call runs prog in a pooled VM, then calls the global function fn with
// args. A script that does not define fn yields (nil, false, nil).
func (p *VMPool) Call(ctx context.Context, prog *goja.Program, fn string, args ...interface{}) (goja.Value, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var vm *goja.Runtime
	select {
	case vm = <-p.pool:
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}

	tainted := false
	defer func() {
		if tainted {
			p.pool <- newSafeVM()
			return
		}
		vm.ClearInterrupt()
		p.pool <- vm
	}()

	timer := time.AfterFunc(p.timeout, func() { vm.Interrupt(ErrTimeout) })
	defer timer.Stop()
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	var (
		res   goja.Value
		found bool
		err   error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				tainted = true
				err = fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()
		vm.Set(fn, goja.Undefined())
		if _, err = vm.RunProgram(prog); err != nil {
			return
		}
		f, ok := goja.AssertFunction(vm.Get(fn))
		if !ok {
			return
		}
		found = true
		vals := make([]goja.Value, len(args))
		for i, a := range args {
			vals[i] = vm.ToValue(a)
		}
		res, err = f(goja.Undefined(), vals...)
	}()

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		// an interrupted VM may hold half-run state
		tainted = true
	}
	if err != nil {
		return nil, found, err
	}
	return res, found, nil
}

// newSafeVM creates a goja Runtime with host escape hatches removed and a
// deterministic Math.random.
func newSafeVM() *goja.Runtime {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	for _, name := range []string{"require", "process", "fetch", "XMLHttpRequest", "eval", "Function"} {
		vm.Set(name, goja.Undefined())
	}
	mathObj := vm.NewObject()
	_ = mathObj.Set("floor", math.Floor)
	_ = mathObj.Set("ceil", math.Ceil)
	_ = mathObj.Set("round", func(v float64) float64 { return math.Floor(v + 0.5) })
	_ = mathObj.Set("abs", math.Abs)
	_ = mathObj.Set("max", math.Max)
	_ = mathObj.Set("min", math.Min)
	_ = mathObj.Set("random", func() float64 { return 0 })
	vm.Set("Math", mathObj)
	return vm
}

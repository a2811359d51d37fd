package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// NoOutput is reported when sandboxed code ran cleanly but printed nothing.
const NoOutput = "Code executed successfully (no output)"

// MaxCallDepth bounds javascript recursion in the sandbox.
const MaxCallDepth = 4096

// Sandbox evaluates javascript in a fresh goja runtime. console output is
// captured; prompt() and readline's question() return the supplied stdin.
// The runtime has no filesystem, network or process access beyond the stubs
// installed here, but it is not hardened against hostile input.
type Sandbox struct {
	Timeout     time.Duration
	Placeholder string
}

func (s *Sandbox) Run(ctx context.Context, source, stdin string) Result {
	input := stdin
	if input == "" {
		input = s.Placeholder
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(MaxCallDepth)
	var out []string
	sink := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = display(vm, arg)
		}
		out = append(out, strings.Join(parts, " "))
		return goja.Undefined()
	}
	install(vm, sink, input)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	if _, err := vm.RunString(source); err != nil {
		return Result{OutputLines: append(out, "Error: "+faultMessage(vm, err)), IsError: true}
	}
	if len(out) == 0 {
		out = []string{NoOutput}
	}
	return Result{OutputLines: out}
}

func install(vm *goja.Runtime, sink func(goja.FunctionCall) goja.Value, input string) {
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }

	console := vm.NewObject()
	for _, name := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(name, sink)
	}
	_ = vm.Set("console", console)

	_ = vm.Set("prompt", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(input)
	})

	stdout := vm.NewObject()
	_ = stdout.Set("write", func(call goja.FunctionCall) goja.Value {
		text := strings.TrimSuffix(call.Argument(0).String(), "\n")
		sink(goja.FunctionCall{Arguments: []goja.Value{vm.ToValue(text)}})
		return vm.ToValue(true)
	})
	process := vm.NewObject()
	_ = process.Set("stdin", vm.NewObject())
	_ = process.Set("stdout", stdout)
	_ = process.Set("argv", []string{"node", "main.js"})
	_ = process.Set("env", vm.NewObject())
	_ = vm.Set("process", process)

	readline := vm.NewObject()
	_ = readline.Set("createInterface", func(goja.FunctionCall) goja.Value {
		rl := vm.NewObject()
		_ = rl.Set("question", func(call goja.FunctionCall) goja.Value {
			if cb, ok := goja.AssertFunction(call.Argument(1)); ok {
				if _, err := cb(goja.Undefined(), vm.ToValue(input)); err != nil {
					var exc *goja.Exception
					if errors.As(err, &exc) {
						panic(exc.Value())
					}
					panic(vm.NewGoError(err))
				}
			}
			return goja.Undefined()
		})
		_ = rl.Set("on", noop)
		_ = rl.Set("close", noop)
		return rl
	})

	_ = vm.Set("require", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if name == "readline" {
			return readline
		}
		panic(vm.NewGoError(fmt.Errorf("Cannot find module '%s'", name)))
	})
}

// display renders a console argument the way a browser console prints it on
// one line.
func display(vm *goja.Runtime, v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.String()
	}
	if _, isFunc := goja.AssertFunction(obj); isFunc {
		return v.String()
	}
	if obj.ClassName() == "Error" {
		return v.String()
	}
	stringify, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	if !ok {
		return v.String()
	}
	s, err := stringify(goja.Undefined(), v)
	if err != nil || goja.IsUndefined(s) {
		return v.String()
	}
	return s.String()
}

func faultMessage(vm *goja.Runtime, err error) string {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if v, ok := interrupted.Value().(error); ok && errors.Is(v, context.DeadlineExceeded) {
			return "execution timed out"
		}
		return "execution interrupted"
	}
	var overflow *goja.StackOverflowError
	if errors.As(err, &overflow) {
		return "Maximum call stack size exceeded"
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		val := exc.Value()
		if obj, ok := val.(*goja.Object); ok {
			if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
				return msg.String()
			}
		}
		if val != nil {
			return val.String()
		}
	}
	return err.Error()
}

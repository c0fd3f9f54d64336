package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/CrestNiraj12/tapestry/app"
	"github.com/CrestNiraj12/tapestry/domain"
)

// ScriptError is an error a script raised or passed to processError.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string { return e.Message }

// bindings exposes a session to one VM.
type bindings struct {
	ctx      context.Context
	vm       *goja.Runtime
	loop     *loop
	session  app.Session
	manifest Manifest
	logger   *zap.Logger

	jsonParse     goja.Callable
	jsonStringify goja.Callable
}

func newBindings(ctx context.Context, vm *goja.Runtime, l *loop, s app.Session, m Manifest, logger *zap.Logger) (*bindings, error) {
	b := &bindings{ctx: ctx, vm: vm, loop: l, session: s, manifest: m, logger: logger}

	jsonObj := vm.Get("JSON").ToObject(vm)
	var ok bool
	if b.jsonParse, ok = goja.AssertFunction(jsonObj.Get("parse")); !ok {
		return nil, errors.New("JSON.parse is not available")
	}
	if b.jsonStringify, ok = goja.AssertFunction(jsonObj.Get("stringify")); !ok {
		return nil, errors.New("JSON.stringify is not available")
	}
	return b, nil
}

func (b *bindings) install(variables map[string]string) error {
	site := b.session.Site()
	if site == "" {
		site = b.manifest.Site
	}
	globals := map[string]any{
		"sendRequest":         b.sendRequest,
		"lookupIcon":          b.lookupIcon,
		"xmlParse":            b.xmlParse,
		"plistParse":          b.plistParse,
		"extractProperties":   b.extractProperties,
		"setItem":             b.setItem,
		"getItem":             b.getItem,
		"clearItems":          b.clearItems,
		"processResults":      b.processResults,
		"processError":        b.processError,
		"processVerification": b.processVerification,
		"setTimeout":          b.setTimeout,
		"clearTimeout":        b.clearTimeout,
		"site":                site,
	}
	for name, v := range globals {
		if err := b.vm.Set(name, v); err != nil {
			return fmt.Errorf("installing %s: %w", name, err)
		}
	}

	console := b.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		if err := console.Set(level, b.console(level)); err != nil {
			return err
		}
	}
	if err := b.vm.Set("console", console); err != nil {
		return err
	}

	for name, value := range variables {
		if existing := b.vm.Get(name); existing != nil {
			b.logger.Warn("variable shadows a global; skipped", zap.String("variable", name))
			continue
		}
		if err := b.vm.Set(name, value); err != nil {
			return fmt.Errorf("installing variable %s: %w", name, err)
		}
	}
	return nil
}

// throw raises err as a JS exception.
func (b *bindings) throw(err error) {
	panic(b.vm.NewGoError(err))
}

func (b *bindings) toJS(v any) goja.Value {
	data, err := json.Marshal(v)
	if err != nil {
		b.throw(err)
	}
	out, err := b.jsonParse(goja.Undefined(), b.vm.ToValue(string(data)))
	if err != nil {
		b.throw(err)
	}
	return out
}

func (b *bindings) fromJS(v goja.Value, dst any) error {
	out, err := b.jsonStringify(goja.Undefined(), v)
	if err != nil {
		return err
	}
	if out == nil || goja.IsUndefined(out) {
		return errors.New("value cannot be serialized")
	}
	return json.Unmarshal([]byte(out.String()), dst)
}

func optionalString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

func (b *bindings) sendRequest(call goja.FunctionCall) goja.Value {
	req := app.Request{
		URL:        optionalString(call.Argument(0)),
		Method:     optionalString(call.Argument(1)),
		Parameters: optionalString(call.Argument(2)),
	}
	if h := call.Argument(3); !goja.IsUndefined(h) && !goja.IsNull(h) {
		if err := b.fromJS(h, &req.Headers); err != nil {
			b.throw(fmt.Errorf("sendRequest: headers: %w", err))
		}
	}

	promise, resolve, reject := b.vm.NewPromise()
	b.loop.async(func() func() {
		body, err := b.session.SendRequest(b.ctx, req)
		return func() {
			if err != nil {
				reject(b.vm.NewGoError(err))
				return
			}
			resolve(body)
		}
	})
	return b.vm.ToValue(promise)
}

func (b *bindings) lookupIcon(call goja.FunctionCall) goja.Value {
	pageURL := optionalString(call.Argument(0))
	promise, resolve, reject := b.vm.NewPromise()
	b.loop.async(func() func() {
		icon, err := b.session.LookupIcon(b.ctx, pageURL)
		return func() {
			switch {
			case err != nil:
				reject(b.vm.NewGoError(err))
			case icon == "":
				resolve(goja.Null())
			default:
				resolve(icon)
			}
		}
	})
	return b.vm.ToValue(promise)
}

func (b *bindings) xmlParse(text string) goja.Value {
	doc, err := b.session.XMLParse(text)
	if err != nil {
		b.throw(err)
	}
	return b.toJS(doc)
}

func (b *bindings) plistParse(text string) goja.Value {
	v, err := b.session.PlistParse(text)
	if err != nil {
		b.throw(err)
	}
	return b.toJS(v)
}

func (b *bindings) extractProperties(text string) goja.Value {
	return b.toJS(b.session.ExtractProperties(text))
}

func (b *bindings) setItem(call goja.FunctionCall) goja.Value {
	key := optionalString(call.Argument(0))
	var value *string
	if v := call.Argument(1); !goja.IsUndefined(v) && !goja.IsNull(v) {
		s := v.String()
		value = &s
	}
	if err := b.session.SetItem(key, value); err != nil {
		b.throw(err)
	}
	return goja.Undefined()
}

func (b *bindings) getItem(key string) goja.Value {
	v, ok, err := b.session.GetItem(key)
	if err != nil {
		b.throw(err)
	}
	if !ok {
		return goja.Null()
	}
	return b.vm.ToValue(v)
}

func (b *bindings) clearItems(goja.FunctionCall) goja.Value {
	if err := b.session.ClearItems(); err != nil {
		b.throw(err)
	}
	return goja.Undefined()
}

func (b *bindings) processResults(call goja.FunctionCall) goja.Value {
	isComplete := true
	if v := call.Argument(1); !goja.IsUndefined(v) {
		isComplete = v.ToBoolean()
	}

	var raw []json.RawMessage
	if v := call.Argument(0); !goja.IsUndefined(v) && !goja.IsNull(v) {
		if err := b.fromJS(v, &raw); err != nil {
			b.throw(fmt.Errorf("processResults: %w", err))
		}
	}
	items := make([]domain.Item, 0, len(raw))
	for i, r := range raw {
		var it domain.Item
		if err := json.Unmarshal(r, &it); err != nil {
			b.logger.Warn("result dropped", zap.Int("index", i), zap.Error(err))
			continue
		}
		items = append(items, it)
	}
	b.session.ProcessResults(items, isComplete)
	return goja.Undefined()
}

func (b *bindings) processError(call goja.FunctionCall) goja.Value {
	b.session.ProcessError(errorFromValue(call.Argument(0)))
	return goja.Undefined()
}

func (b *bindings) processVerification(call goja.FunctionCall) goja.Value {
	arg := call.Argument(0)
	var v domain.Verification
	if obj, ok := arg.(*goja.Object); ok {
		if err := b.fromJS(obj, &v); err != nil {
			b.throw(fmt.Errorf("processVerification: %w", err))
		}
	} else {
		v = domain.NewVerification(optionalString(arg))
	}
	if v.DisplayName == "" {
		v.DisplayName = b.manifest.DisplayName
	}
	if v.Icon == "" {
		v.Icon = b.manifest.Icon
	}
	b.session.ProcessVerification(v)
	return goja.Undefined()
}

func (b *bindings) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		b.throw(errors.New("setTimeout: callback is not a function"))
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}
	return b.vm.ToValue(b.loop.setTimeout(fn, delay, args))
}

func (b *bindings) clearTimeout(call goja.FunctionCall) goja.Value {
	b.loop.clearTimeout(call.Argument(0).ToInteger())
	return goja.Undefined()
}

func (b *bindings) console(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, a := range call.Arguments {
			parts = append(parts, a.String())
		}
		msg := strings.Join(parts, " ")
		switch level {
		case "error":
			b.logger.Error(msg)
		case "warn":
			b.logger.Warn(msg)
		case "debug":
			b.logger.Debug(msg)
		default:
			b.logger.Info(msg)
		}
		return goja.Undefined()
	}
}

// errorFromValue turns a thrown or reported JS value into an error.
func errorFromValue(v goja.Value) error {
	if obj, ok := v.(*goja.Object); ok {
		// Errors created by NewGoError carry the Go error in "value".
		if inner := obj.Get("value"); inner != nil {
			if err, ok := inner.Export().(error); ok {
				return err
			}
		}
		if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) {
			return &ScriptError{Message: m.String()}
		}
	}
	msg := optionalString(v)
	if msg == "" {
		msg = "unknown script error"
	}
	return &ScriptError{Message: msg}
}

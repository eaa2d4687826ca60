package rpc

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ritksm/thriftpy/internal/logging"
	"github.com/ritksm/thriftpy/protocol"
	"github.com/ritksm/thriftpy/schema"
	"github.com/ritksm/thriftpy/value"
)

// Handler implements one service method. A non-nil error is either a
// *DeclaredException matching one of the method's throws fields, or
// any other error, which the Processor reports as ApplicationError
// INTERNAL_ERROR. result is ignored for Void methods.
type Handler func(ctx context.Context, args value.Value) (result value.Value, err error)

// Metrics receives per-call observations from a Processor. Satisfied
// by rpcmetrics.Recorder; nil is a valid no-op Metrics.
type Metrics interface {
	ObserveCall(method, outcome string)
}

// Processor dispatches incoming CALL/ONEWAY messages against a
// ServiceDef's methods, per spec.md §4.7.
type Processor struct {
	svc      *schema.ServiceDef
	handlers map[string]Handler
	metrics  Metrics
}

// NewProcessor builds a Processor for svc. Handlers are registered
// with RegisterHandler before the first call to Process.
func NewProcessor(svc *schema.ServiceDef) *Processor {
	return &Processor{svc: svc, handlers: make(map[string]Handler)}
}

// RegisterHandler binds a method name to its implementation. name
// must name a method on svc or its inheritance chain.
func (pr *Processor) RegisterHandler(name string, h Handler) {
	pr.handlers[name] = h
}

// WithMetrics attaches a Metrics recorder, returning pr for chaining.
func (pr *Processor) WithMetrics(m Metrics) *Processor {
	pr.metrics = m
	return pr
}

func (pr *Processor) observe(method, outcome string) {
	if pr.metrics != nil {
		pr.metrics.ObserveCall(method, outcome)
	}
}

// Process runs one read-dispatch-reply cycle against p. A non-nil
// error is a transport or protocol failure; per spec.md §7 these
// terminate the session, so callers should stop looping on error.
func (pr *Processor) Process(ctx context.Context, p protocol.Protocol) error {
	name, mtype, seqid, err := p.ReadMessageBegin()
	if err != nil {
		return fmt.Errorf("rpc: read message: %w", err)
	}
	if timed, ok := pr.metrics.(interface{ Timer(string) func() }); ok {
		defer timed.Timer(name)()
	}

	if mtype != protocol.Call && mtype != protocol.Oneway {
		if err := p.ReadMessageEnd(); err != nil {
			return fmt.Errorf("rpc: read message end: %w", err)
		}
		pr.observe(name, "invalid_message_type")
		return pr.replyException(p, name, seqid, InvalidMessageType,
			fmt.Sprintf("unexpected message type %s", mtype))
	}

	method, ok := pr.svc.Method(name)
	if !ok {
		if err := p.Skip(protocol.Struct); err != nil {
			return fmt.Errorf("rpc: skip unknown method args: %w", err)
		}
		if err := p.ReadMessageEnd(); err != nil {
			return fmt.Errorf("rpc: read message end: %w", err)
		}
		pr.observe(name, "unknown_method")
		if mtype == protocol.Oneway {
			return nil
		}
		return pr.replyException(p, name, seqid, UnknownMethod,
			fmt.Sprintf("unknown method %q", name))
	}

	args, err := protocol.ReadStruct(p, method.Args)
	if err != nil {
		return fmt.Errorf("rpc: decode args for %s: %w", name, err)
	}
	if err := p.ReadMessageEnd(); err != nil {
		return fmt.Errorf("rpc: read message end: %w", err)
	}

	handler, ok := pr.handlers[name]
	if !ok {
		pr.observe(name, "no_handler")
		if method.Oneway {
			logging.Error("rpc: no handler registered for oneway method", zap.String("method", name))
			return nil
		}
		return pr.replyException(p, name, seqid, InternalError,
			fmt.Sprintf("no handler registered for method %q", name))
	}

	result, herr := handler(ctx, args)

	if method.Oneway {
		if herr != nil {
			logging.Error("rpc: oneway handler error", zap.String("method", name), zap.Error(herr))
		}
		pr.observe(name, "oneway")
		return nil
	}

	if herr != nil {
		return pr.replyHandlerError(p, method, name, seqid, herr)
	}
	pr.observe(name, "success")
	return pr.replySuccess(p, method, name, seqid, result)
}

// replySuccess writes a REPLY carrying the success value at field id
// 0 (absent entirely for Void methods).
func (pr *Processor) replySuccess(p protocol.Protocol, method *schema.MethodDef, name string, seqid int32, result value.Value) error {
	fields := map[int16]value.Value{}
	replyFields := throwsFieldDefs(method)
	if !method.Void {
		fields[0] = result
		replyFields = append([]*schema.FieldDef{{ID: 0, Name: "success", Requiredness: schema.DefaultRequiredness, Type: method.ReturnType}}, replyFields...)
	}
	reply := schema.NewStructDef(name+"_reply", schema.KindStruct, replyFields)
	return pr.writeReply(p, name, seqid, value.NewStruct(reply, fields))
}

// replyHandlerError encodes a declared exception into its matching
// throws field, or falls back to an ApplicationError INTERNAL_ERROR
// for anything else, per spec.md §4.7 point 5.
func (pr *Processor) replyHandlerError(p protocol.Protocol, method *schema.MethodDef, name string, seqid int32, herr error) error {
	if declErr, ok := herr.(*DeclaredException); ok {
		fv := declErr.Value
		if method.Throws != nil {
			for _, f := range method.Throws.Fields {
				sd := f.Type.StructDef()
				if sd != nil && fv.StructDef() != nil && sd.Name == fv.StructDef().Name {
					replyFields := throwsFieldDefs(method)
					reply := schema.NewStructDef(name+"_reply", schema.KindStruct, replyFields)
					pr.observe(name, "declared_exception")
					return pr.writeReply(p, name, seqid, value.NewStruct(reply, map[int16]value.Value{f.ID: fv}))
				}
			}
		}
		pr.observe(name, "internal_error")
		return pr.replyException(p, name, seqid, InternalError,
			fmt.Sprintf("handler raised undeclared exception for method %q: %s", name, declErr.Error()))
	}
	pr.observe(name, "internal_error")
	return pr.replyException(p, name, seqid, InternalError, herr.Error())
}

func throwsFieldDefs(method *schema.MethodDef) []*schema.FieldDef {
	if method.Throws == nil {
		return nil
	}
	out := make([]*schema.FieldDef, len(method.Throws.Fields))
	copy(out, method.Throws.Fields)
	return out
}

func (pr *Processor) writeReply(p protocol.Protocol, name string, seqid int32, reply value.Value) error {
	if err := p.WriteMessageBegin(name, protocol.Reply, seqid); err != nil {
		return fmt.Errorf("rpc: write reply header: %w", err)
	}
	if err := protocol.WriteStruct(p, reply.StructDef(), reply); err != nil {
		return fmt.Errorf("rpc: encode reply: %w", err)
	}
	if err := p.WriteMessageEnd(); err != nil {
		return fmt.Errorf("rpc: write message end: %w", err)
	}
	return flush(p)
}

// replyException writes a TApplicationException payload (field 1
// message:string, field 2 type:i32) under message type EXCEPTION
// rather than REPLY: spec.md §6's cross-implementation interop clause
// requires this, since a conformant Thrift client keys
// TApplicationException decoding off the EXCEPTION message type.
func (pr *Processor) replyException(p protocol.Protocol, name string, seqid int32, kind ApplicationKind, message string) error {
	if err := p.WriteMessageBegin(name, protocol.Exception, seqid); err != nil {
		return fmt.Errorf("rpc: write exception header: %w", err)
	}
	if err := writeApplicationException(p, &ApplicationError{Kind: kind, Message: message}); err != nil {
		return err
	}
	if err := p.WriteMessageEnd(); err != nil {
		return fmt.Errorf("rpc: write message end: %w", err)
	}
	return flush(p)
}

// flush pushes any buffered writes if the protocol's underlying
// transport supports it. Protocol implementations here don't expose
// the transport directly, so flushing is the host's responsibility
// when wiring a buffered/framed transport; this hook exists for
// transports that flush on every message boundary regardless.
func flush(p protocol.Protocol) error {
	if f, ok := p.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

package rpc

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ritksm/thriftpy/internal/logging"
	"github.com/ritksm/thriftpy/protocol"
	"github.com/ritksm/thriftpy/schema"
	"github.com/ritksm/thriftpy/value"
)

// Client drives one ServiceDef's methods over a Protocol, per
// spec.md §4.7. A Client is not safe for concurrent use by multiple
// goroutines; callers that need concurrency serialize their own
// calls or pool multiple Clients.
type Client struct {
	svc    *schema.ServiceDef
	p      protocol.Protocol
	seqid  atomic.Int32
	corrID bool
}

// NewClient builds a Client dispatching svc's methods over p.
func NewClient(svc *schema.ServiceDef, p protocol.Protocol) *Client {
	return &Client{svc: svc, p: p}
}

// Protocol returns the underlying Protocol this Client dispatches
// over, for hosts that need to interleave raw messages (e.g. a
// handshake) with Call/CallOneway.
func (c *Client) Protocol() protocol.Protocol {
	return c.p
}

// WithCorrelationIDs enables stamping a log-scoped uuid per call,
// independent of the wire seqid, for tracing a call across logs on
// both sides of the connection. Off by default.
func (c *Client) WithCorrelationIDs(enabled bool) *Client {
	c.corrID = enabled
	return c
}

// Call invokes a non-oneway method and returns its success value, or
// an empty value.Value when the method is Void. A *DeclaredException or
// *ApplicationError surfaces as the returned error for a well-formed
// exception reply; any other error is a transport/protocol failure.
func (c *Client) Call(ctx context.Context, method string, args value.Value) (value.Value, error) {
	m, ok := c.svc.Method(method)
	if !ok {
		return value.Value{}, fmt.Errorf("rpc: unknown method %q", method)
	}
	if m.Oneway {
		return value.Value{}, fmt.Errorf("rpc: %q is oneway, use CallOneway", method)
	}

	corrID := c.logCall(method)
	seqid := c.seqid.Add(1)

	if err := c.send(method, protocol.Call, seqid, m.Args, args); err != nil {
		return value.Value{}, err
	}

	rname, mtype, rseqid, err := c.p.ReadMessageBegin()
	if err != nil {
		return value.Value{}, fmt.Errorf("rpc: read reply: %w", err)
	}
	if rseqid != seqid {
		if err := c.p.Skip(protocol.Struct); err != nil {
			return value.Value{}, err
		}
		_ = c.p.ReadMessageEnd()
		return value.Value{}, &ApplicationError{Kind: BadSequenceID,
			Message: fmt.Sprintf("expected seqid %d, got %d", seqid, rseqid)}
	}
	if rname != method {
		logging.Debug("rpc: reply method name mismatch", zap.String("want", method), zap.String("got", rname), zap.String("correlation_id", corrID))
	}

	switch mtype {
	case protocol.Exception:
		ae, err := readApplicationException(c.p)
		if err != nil {
			return value.Value{}, fmt.Errorf("rpc: decode application exception: %w", err)
		}
		if err := c.p.ReadMessageEnd(); err != nil {
			return value.Value{}, err
		}
		return value.Value{}, ae
	case protocol.Reply:
		reply, err := protocol.ReadStruct(c.p, replyEnvelope(method, m))
		if err != nil {
			return value.Value{}, fmt.Errorf("rpc: decode reply: %w", err)
		}
		if err := c.p.ReadMessageEnd(); err != nil {
			return value.Value{}, err
		}
		return c.resolveReply(m, reply)
	default:
		if err := c.p.Skip(protocol.Struct); err != nil {
			return value.Value{}, err
		}
		_ = c.p.ReadMessageEnd()
		return value.Value{}, &ApplicationError{Kind: InvalidMessageType,
			Message: fmt.Sprintf("unexpected reply message type %s", mtype)}
	}
}

// CallOneway invokes a oneway method. It returns once the request has
// been written and flushed; no reply is read.
func (c *Client) CallOneway(ctx context.Context, method string, args value.Value) error {
	m, ok := c.svc.Method(method)
	if !ok {
		return fmt.Errorf("rpc: unknown method %q", method)
	}
	if !m.Oneway {
		return fmt.Errorf("rpc: %q is not oneway, use Call", method)
	}
	c.logCall(method)
	seqid := c.seqid.Add(1)
	return c.send(method, protocol.Oneway, seqid, m.Args, args)
}

func (c *Client) logCall(method string) string {
	if !c.corrID {
		return ""
	}
	id := uuid.NewString()
	logging.Debug("rpc: call", zap.String("method", method), zap.String("correlation_id", id))
	return id
}

func (c *Client) send(method string, mtype protocol.MessageType, seqid int32, argsDef *schema.StructDef, args value.Value) error {
	if err := c.p.WriteMessageBegin(method, mtype, seqid); err != nil {
		return fmt.Errorf("rpc: write call header: %w", err)
	}
	if err := protocol.WriteStruct(c.p, argsDef, args); err != nil {
		return fmt.Errorf("rpc: encode args: %w", err)
	}
	if err := c.p.WriteMessageEnd(); err != nil {
		return fmt.Errorf("rpc: write message end: %w", err)
	}
	return flush(c.p)
}

// replyEnvelope builds the same success(0)+throws StructDef shape the
// Processor encodes a reply with, so the client can decode it.
func replyEnvelope(method string, m *schema.MethodDef) *schema.StructDef {
	fields := throwsFieldDefs(m)
	if !m.Void {
		fields = append([]*schema.FieldDef{{ID: 0, Name: "success", Requiredness: schema.DefaultRequiredness, Type: m.ReturnType}}, fields...)
	}
	return schema.NewStructDef(method+"_reply", schema.KindStruct, fields)
}

// resolveReply extracts the success value at field 0, or matches a
// present throws field against a *DeclaredException, or reports a
// MissingResult application error when neither is present for a
// non-void method.
func (c *Client) resolveReply(m *schema.MethodDef, reply value.Value) (value.Value, error) {
	if sv, ok := reply.Field(0); ok {
		return sv, nil
	}
	if m.Throws != nil {
		for _, f := range m.Throws.Fields {
			if fv, ok := reply.Field(f.ID); ok {
				return value.Value{}, NewDeclaredException(fv)
			}
		}
	}
	if m.Void {
		return value.Value{}, nil
	}
	return value.Value{}, &ApplicationError{Kind: MissingResult,
		Message: fmt.Sprintf("method %q returned neither success nor a declared exception", m.Name)}
}

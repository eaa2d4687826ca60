package main

import (
	"context"
	"fmt"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/ritksm/thriftpy/config"
	"github.com/ritksm/thriftpy/internal/logging"
	"github.com/ritksm/thriftpy/protocol"
	"github.com/ritksm/thriftpy/rpc"
	"github.com/ritksm/thriftpy/rpcmetrics"
	"github.com/ritksm/thriftpy/schema"
	"github.com/ritksm/thriftpy/transport"
	"github.com/ritksm/thriftpy/value"

	"github.com/prometheus/client_golang/prometheus"
)

// connTransport adapts a net.Conn into transport.Transport, giving
// Read the exact-length blocking contract the Protocol layer expects.
type connTransport struct {
	c      net.Conn
	closed bool
}

func (t *connTransport) Read(p []byte) error {
	_, err := io.ReadFull(t.c, p)
	return err
}

func (t *connTransport) Write(p []byte) error {
	_, err := t.c.Write(p)
	return err
}

func (t *connTransport) Flush() error { return nil }

func (t *connTransport) Close() error {
	t.closed = true
	return t.c.Close()
}

func (t *connTransport) IsOpen() bool { return !t.closed }

// serve runs a demo RPC server for svc on addr: every method replies
// with a zero value of its declared return type rather than running
// real business logic, so operators can exercise wire framing,
// protocol negotiation, and dispatch end to end against a live
// listener.
func serve(addr string, svc *schema.ServiceDef, cfg *config.Config) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()

	recorder, err := rpcmetrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	pr := rpc.NewProcessor(svc)
	for _, m := range svc.AllMethods() {
		m := m
		pr.RegisterHandler(m.Name, func(ctx context.Context, args value.Value) (value.Value, error) {
			logging.Info("thriftrt: demo handler invoked", zap.String("method", m.Name))
			if m.Void {
				return value.Value{}, nil
			}
			return zeroValue(m.ReturnType), nil
		})
	}
	pr.WithMetrics(recorder)

	logging.Info("thriftrt: demo server listening", zap.String("addr", addr), zap.String("service", svc.Name))

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go handleConn(conn, pr, cfg)
	}
}

func handleConn(conn net.Conn, pr *rpc.Processor, cfg *config.Config) {
	defer conn.Close()
	tr := transport.NewFramedMax(&connTransport{c: conn}, cfg.Transport.FrameSizeLimit)
	p := protocol.NewBinaryConfig(tr, cfg.ToProtocolConfig())

	for {
		if err := pr.Process(context.Background(), p); err != nil {
			logging.Info("thriftrt: connection closed", zap.Error(err))
			return
		}
		if err := tr.Flush(); err != nil {
			logging.Info("thriftrt: connection closed", zap.Error(err))
			return
		}
	}
}

// zeroValue builds a minimal value of typ's declared shape: false,
// zero, empty string, or an empty container. Struct-typed returns get
// an empty field map — fine for a demo that never exercises required
// nested fields.
func zeroValue(typ *schema.TypeRef) value.Value {
	u := typ.Underlying()
	switch u.Category {
	case schema.Bool:
		return value.NewBool(false)
	case schema.Byte:
		return value.NewByte(0)
	case schema.I16:
		return value.NewI16(0)
	case schema.I32, schema.Enum:
		return value.NewI32(0)
	case schema.I64:
		return value.NewI64(0)
	case schema.Double:
		return value.NewDouble(0)
	case schema.String:
		return value.NewString("")
	case schema.Binary:
		return value.NewBinary(nil)
	case schema.List:
		return value.NewList(nil)
	case schema.Set:
		return value.NewSet(nil)
	case schema.Map:
		return value.NewMap(nil, nil)
	case schema.Struct, schema.Union, schema.Exception:
		return value.NewStruct(u.StructDef(), map[int16]value.Value{})
	}
	return value.Value{}
}

package rpc_test

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/ritksm/thriftpy/protocol"
	"github.com/ritksm/thriftpy/rpc"
	"github.com/ritksm/thriftpy/schema"
	"github.com/ritksm/thriftpy/value"
)

const addressBookServiceIDL = `
enum PhoneType {
  MOBILE = 0,
  HOME = 1,
  WORK = 2
}

struct PhoneNumber {
  1: required string number,
  2: optional PhoneType type
}

struct Person {
  1: required string name,
  2: optional list<PhoneNumber> phones
}

exception PersonNotExistsError {
  1: string message
}

service AddressBookService {
  void add(1: Person person),
  Person get(1: string name) throws (1: PersonNotExistsError notFound),
  void remove(1: string name) throws (1: PersonNotExistsError notFound),
  list<Person> list(),
  i32 count(),
  bool ping(),
  oneway void notify(1: string name),
  bool sleep(1: i16 ms),
  void clear()
}
`

func loadAddressBookService(t *testing.T) (*schema.Schema, *schema.ServiceDef) {
	t.Helper()
	src := schema.MapSourceProvider{"addressbook.thrift": addressBookServiceIDL}
	s, err := schema.LoadSchema("addressbook.thrift", schema.LoadOptions{Source: src})
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	svc, ok := s.Service("AddressBookService")
	if !ok {
		t.Fatal("AddressBookService not found")
	}
	return s, svc
}

// connTransport adapts a net.Conn half of an in-process pipe into a
// transport.Transport, giving Read the exact-length blocking contract
// the Protocol layer expects (net.Conn.Read alone may return short).
type connTransport struct {
	c      net.Conn
	closed bool
}

func newConnTransport(c net.Conn) *connTransport { return &connTransport{c: c} }

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

// wiredPair connects a Client and a Processor across an in-process,
// full-duplex pipe so Call's combined write-then-read round trips
// through a real synchronous handoff rather than a shared byte tape.
func wiredPair(svc *schema.ServiceDef) (*rpc.Client, *rpc.Processor, protocol.Protocol) {
	clientConn, serverConn := net.Pipe()
	clientProto := protocol.NewBinary(newConnTransport(clientConn))
	serverProto := protocol.NewBinary(newConnTransport(serverConn))
	return rpc.NewClient(svc, clientProto), rpc.NewProcessor(svc), serverProto
}

func TestProcessorDeclaredException(t *testing.T) {
	_, svc := loadAddressBookService(t)
	method, ok := svc.Method("remove")
	if !ok {
		t.Fatal("remove method not found")
	}
	excDef := method.Throws.Fields[0].Type.StructDef()

	client, pr, serverProto := wiredPair(svc)
	pr.RegisterHandler("remove", func(ctx context.Context, args value.Value) (value.Value, error) {
		name, _ := args.Field(1)
		if name.String() == "bob" {
			exc := value.NewStruct(excDef, map[int16]value.Value{1: value.NewString("Person Not Exists!")})
			return value.Value{}, rpc.NewDeclaredException(exc)
		}
		return value.Value{}, nil
	})

	serverErr := make(chan error, 1)
	go func() { serverErr <- pr.Process(context.Background(), serverProto) }()

	args := value.NewStruct(method.Args, map[int16]value.Value{1: value.NewString("bob")})
	_, callErr := client.Call(context.Background(), "remove", args)

	if err := <-serverErr; err != nil {
		t.Fatalf("Process: %v", err)
	}
	if callErr == nil {
		t.Fatal("expected a declared exception error")
	}
	declErr, ok := callErr.(*rpc.DeclaredException)
	if !ok {
		t.Fatalf("expected *rpc.DeclaredException, got %T: %v", callErr, callErr)
	}
	msg, _ := declErr.Value.Field(1)
	if msg.String() != "Person Not Exists!" {
		t.Fatalf("got message %q", msg.String())
	}
}

func TestProcessorSuccessReply(t *testing.T) {
	_, svc := loadAddressBookService(t)
	client, pr, serverProto := wiredPair(svc)
	pr.RegisterHandler("ping", func(ctx context.Context, args value.Value) (value.Value, error) {
		return value.NewBool(true), nil
	})

	serverErr := make(chan error, 1)
	go func() { serverErr <- pr.Process(context.Background(), serverProto) }()

	method, _ := svc.Method("ping")
	result, err := client.Call(context.Background(), "ping", value.NewStruct(method.Args, nil))
	if err := <-serverErr; err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !result.Bool() {
		t.Fatal("expected ping to reply true")
	}
}

func TestProcessorUnknownMethod(t *testing.T) {
	_, svc := loadAddressBookService(t)
	client, pr, serverProto := wiredPair(svc)

	serverErr := make(chan error, 1)
	go func() { serverErr <- pr.Process(context.Background(), serverProto) }()

	// Bypass Client.Call (which validates against the schema) to send
	// a call naming a method the service never declared.
	clientProto := client.Protocol()
	if err := clientProto.WriteMessageBegin("frobnicate", protocol.Call, 9); err != nil {
		t.Fatal(err)
	}
	if err := clientProto.WriteStructBegin("frobnicate_args"); err != nil {
		t.Fatal(err)
	}
	if err := clientProto.WriteFieldStop(); err != nil {
		t.Fatal(err)
	}
	if err := clientProto.WriteStructEnd(); err != nil {
		t.Fatal(err)
	}
	if err := clientProto.WriteMessageEnd(); err != nil {
		t.Fatal(err)
	}

	// net.Pipe is unbuffered: the server's reply write blocks until it
	// is read here, so the whole reply is consumed before waiting on
	// Process to return.
	name, mtype, seqid, err := clientProto.ReadMessageBegin()
	if err != nil {
		t.Fatalf("ReadMessageBegin: %v", err)
	}
	if mtype != protocol.Exception {
		t.Fatalf("expected Exception reply, got %s", mtype)
	}
	if seqid != 9 {
		t.Fatalf("expected seqid 9 echoed, got %d", seqid)
	}
	_ = name
	if err := clientProto.Skip(protocol.Struct); err != nil {
		t.Fatalf("skip exception payload: %v", err)
	}
	if err := clientProto.ReadMessageEnd(); err != nil {
		t.Fatalf("ReadMessageEnd: %v", err)
	}

	if err := <-serverErr; err != nil {
		t.Fatalf("Process: %v", err)
	}
}

func TestProcessorOnewayNoReply(t *testing.T) {
	_, svc := loadAddressBookService(t)
	client, pr, serverProto := wiredPair(svc)

	notified := make(chan string, 1)
	pr.RegisterHandler("notify", func(ctx context.Context, args value.Value) (value.Value, error) {
		name, _ := args.Field(1)
		notified <- name.String()
		return value.Value{}, nil
	})

	serverErr := make(chan error, 1)
	go func() { serverErr <- pr.Process(context.Background(), serverProto) }()

	method, _ := svc.Method("notify")
	args := value.NewStruct(method.Args, map[int16]value.Value{1: value.NewString("carol")})
	if err := client.CallOneway(context.Background(), "notify", args); err != nil {
		t.Fatalf("CallOneway: %v", err)
	}

	if err := <-serverErr; err != nil {
		t.Fatalf("Process: %v", err)
	}
	select {
	case got := <-notified:
		if got != "carol" {
			t.Fatalf("got %q", got)
		}
	default:
		t.Fatal("handler was not invoked")
	}
}

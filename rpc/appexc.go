package rpc

import "github.com/ritksm/thriftpy/protocol"

// writeApplicationException encodes ae as the standard
// TApplicationException payload: field 1 message:string, field 2
// type:i32, per spec.md §6.
func writeApplicationException(p protocol.Protocol, ae *ApplicationError) error {
	if err := p.WriteStructBegin("TApplicationException"); err != nil {
		return err
	}
	if err := p.WriteFieldBegin("message", protocol.String, 1); err != nil {
		return err
	}
	if err := p.WriteString(ae.Message); err != nil {
		return err
	}
	if err := p.WriteFieldEnd(); err != nil {
		return err
	}
	if err := p.WriteFieldBegin("type", protocol.I32, 2); err != nil {
		return err
	}
	if err := p.WriteI32(int32(ae.Kind)); err != nil {
		return err
	}
	if err := p.WriteFieldEnd(); err != nil {
		return err
	}
	if err := p.WriteFieldStop(); err != nil {
		return err
	}
	return p.WriteStructEnd()
}

// readApplicationException decodes a TApplicationException payload,
// skipping any fields it doesn't recognize.
func readApplicationException(p protocol.Protocol) (*ApplicationError, error) {
	if _, err := p.ReadStructBegin(); err != nil {
		return nil, err
	}
	ae := &ApplicationError{Kind: Unknown, Message: "unknown application exception"}
	for {
		_, wt, id, err := p.ReadFieldBegin()
		if err != nil {
			return nil, err
		}
		if wt == protocol.Stop {
			break
		}
		switch id {
		case 1:
			s, err := p.ReadString()
			if err != nil {
				return nil, err
			}
			ae.Message = s
		case 2:
			n, err := p.ReadI32()
			if err != nil {
				return nil, err
			}
			ae.Kind = ApplicationKind(n)
		default:
			if err := p.Skip(wt); err != nil {
				return nil, err
			}
		}
		if err := p.ReadFieldEnd(); err != nil {
			return nil, err
		}
	}
	if err := p.ReadStructEnd(); err != nil {
		return nil, err
	}
	return ae, nil
}

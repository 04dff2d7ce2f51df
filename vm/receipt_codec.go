package vm

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// 回执的 protobuf 字段号
const (
	rcFieldTxID       protowire.Number = 1
	rcFieldStatus     protowire.Number = 2
	rcFieldError      protowire.Number = 3
	rcFieldCode       protowire.Number = 4
	rcFieldTimestamp  protowire.Number = 5
	rcFieldLogs       protowire.Number = 6
	rcFieldWriteCount protowire.Number = 7
	rcFieldKind       protowire.Number = 8
	rcFieldAmount     protowire.Number = 9
)

// EncodeReceipt protobuf wire 格式，零值字段省略
func EncodeReceipt(rc *Receipt) []byte {
	var b []byte
	appendString := func(num protowire.Number, s string) {
		if s == "" {
			return
		}
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendString(b, s)
	}
	appendVarint := func(num protowire.Number, v uint64) {
		if v == 0 {
			return
		}
		b = protowire.AppendTag(b, num, protowire.VarintType)
		b = protowire.AppendVarint(b, v)
	}

	appendString(rcFieldTxID, rc.TxID)
	appendString(rcFieldStatus, rc.Status)
	appendString(rcFieldError, rc.Error)
	appendVarint(rcFieldCode, uint64(rc.Code))
	appendVarint(rcFieldTimestamp, uint64(rc.Timestamp))
	for _, l := range rc.Logs {
		b = protowire.AppendTag(b, rcFieldLogs, protowire.BytesType)
		b = protowire.AppendString(b, l)
	}
	appendVarint(rcFieldWriteCount, uint64(rc.WriteCount))
	appendString(rcFieldKind, rc.Kind)
	appendVarint(rcFieldAmount, rc.Amount)
	return b
}

// DecodeReceipt 未知字段跳过
func DecodeReceipt(b []byte) (*Receipt, error) {
	rc := &Receipt{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("receipt tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && isStringField(num):
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("receipt field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case rcFieldTxID:
				rc.TxID = s
			case rcFieldStatus:
				rc.Status = s
			case rcFieldError:
				rc.Error = s
			case rcFieldLogs:
				rc.Logs = append(rc.Logs, s)
			case rcFieldKind:
				rc.Kind = s
			}
		case typ == protowire.VarintType && isVarintField(num):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("receipt field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case rcFieldCode:
				rc.Code = uint32(v)
			case rcFieldTimestamp:
				rc.Timestamp = int64(v)
			case rcFieldWriteCount:
				rc.WriteCount = int(v)
			case rcFieldAmount:
				rc.Amount = v
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("receipt field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return rc, nil
}

func isStringField(num protowire.Number) bool {
	switch num {
	case rcFieldTxID, rcFieldStatus, rcFieldError, rcFieldLogs, rcFieldKind:
		return true
	}
	return false
}

func isVarintField(num protowire.Number) bool {
	switch num {
	case rcFieldCode, rcFieldTimestamp, rcFieldWriteCount, rcFieldAmount:
		return true
	}
	return false
}

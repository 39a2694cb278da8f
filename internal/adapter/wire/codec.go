// Package wire encodes and decodes the broker's two message kinds using the
// protocol buffers wire format:
//
//	message Patch         { string patch = 1; optional string metadata = 2; }
//	message PatchResponse { Status status = 1; }  // UNKNOWN=0 ACCEPTED=1 REJECTED=2
package wire

import (
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Strob0t/patchpal/internal/domain"
	"github.com/Strob0t/patchpal/internal/domain/review"
)

const (
	fieldPatch    protowire.Number = 1
	fieldMetadata protowire.Number = 2
	fieldStatus   protowire.Number = 1
)

// EncodeSubmission serializes a Submission.
func EncodeSubmission(s review.Submission) []byte {
	size := protowire.SizeTag(fieldPatch) + protowire.SizeBytes(len(s.Patch))
	if s.Metadata != nil {
		size += protowire.SizeTag(fieldMetadata) + protowire.SizeBytes(len(*s.Metadata))
	}
	b := make([]byte, 0, size)
	if s.Patch != "" {
		b = protowire.AppendTag(b, fieldPatch, protowire.BytesType)
		b = protowire.AppendString(b, s.Patch)
	}
	if s.Metadata != nil {
		b = protowire.AppendTag(b, fieldMetadata, protowire.BytesType)
		b = protowire.AppendString(b, *s.Metadata)
	}
	return b
}

// DecodeSubmission parses a Submission. Truncated input, wrong wire types for
// known fields and invalid UTF-8 fail with domain.ErrMalformedMessage.
// Unknown fields are skipped.
func DecodeSubmission(b []byte) (review.Submission, error) {
	var s review.Submission
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return review.Submission{}, malformed("tag", n)
		}
		b = b[n:]

		switch num {
		case fieldPatch, fieldMetadata:
			if typ != protowire.BytesType {
				return review.Submission{}, fmt.Errorf("field %d: wire type %d: %w", num, typ, domain.ErrMalformedMessage)
			}
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return review.Submission{}, malformed(fmt.Sprintf("field %d", num), n)
			}
			if !utf8.ValidString(v) {
				return review.Submission{}, fmt.Errorf("field %d: invalid utf-8: %w", num, domain.ErrMalformedMessage)
			}
			if num == fieldPatch {
				s.Patch = v
			} else {
				s.Metadata = &v
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return review.Submission{}, malformed(fmt.Sprintf("field %d", num), n)
			}
			b = b[n:]
		}
	}
	return s, nil
}

// EncodeDecision serializes a decision status.
func EncodeDecision(s review.Status) []byte {
	if s == review.StatusUnknown {
		return nil
	}
	b := make([]byte, 0, protowire.SizeTag(fieldStatus)+protowire.SizeVarint(uint64(s)))
	b = protowire.AppendTag(b, fieldStatus, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(s)))
}

// DecodeDecision parses a decision. Status values this build does not know
// decode to review.StatusUnknown rather than failing.
func DecodeDecision(b []byte) (review.Status, error) {
	status := review.StatusUnknown
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return review.StatusUnknown, malformed("tag", n)
		}
		b = b[n:]

		if num == fieldStatus && typ == protowire.VarintType {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return review.StatusUnknown, malformed("status", n)
			}
			status = toStatus(int32(v))
			b = b[n:]
			continue
		}
		if num == fieldStatus {
			return review.StatusUnknown, fmt.Errorf("status: wire type %d: %w", typ, domain.ErrMalformedMessage)
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return review.StatusUnknown, malformed(fmt.Sprintf("field %d", num), n)
		}
		b = b[n:]
	}
	return status, nil
}

func toStatus(v int32) review.Status {
	switch s := review.Status(v); s {
	case review.StatusAccepted, review.StatusRejected:
		return s
	default:
		return review.StatusUnknown
	}
}

func malformed(what string, n int) error {
	return fmt.Errorf("%s: %v: %w", what, protowire.ParseError(n), domain.ErrMalformedMessage)
}

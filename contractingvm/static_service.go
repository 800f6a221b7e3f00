// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractingvm

import (
	"fmt"
	"net/http"

	"github.com/gorilla/rpc/v2"

	"github.com/ava-labs/avalanchego/utils/formatting"

	cjson "github.com/ava-labs/avalanchego/utils/json"

	"github.com/convm/contractingvm/lang"
)

// StaticService answers stateless requests: validating contract source
// before submission and converting payload encodings.
type StaticService struct{}

// CreateStaticService ...
func CreateStaticService() *StaticService {
	return &StaticService{}
}

// NewStaticHandler returns an HTTP handler serving the static API under
// the contracting namespace.
func NewStaticHandler() (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(cjson.NewCodec(), "application/json")
	server.RegisterCodec(cjson.NewCodec(), "application/json;charset=UTF-8")
	return server, server.RegisterService(CreateStaticService(), Namespace)
}

// ValidateArgs are arguments for Validate
type ValidateArgs struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// ViolationReply is one reported violation with its source position.
type ViolationReply struct {
	Kind   string `json:"kind"`
	Msg    string `json:"msg"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// ValidateReply is the reply from Validate
type ValidateReply struct {
	Valid      bool             `json:"valid"`
	Violations []ViolationReply `json:"violations,omitempty"`
}

// Validate checks contract source against the dialect without touching
// any state, reporting every violation found.
func (ss *StaticService) Validate(_ *http.Request, args *ValidateArgs, reply *ValidateReply) error {
	_, err := lang.Validate(args.Name, []byte(args.Source))
	if err == nil {
		reply.Valid = true
		return nil
	}
	rej, ok := lang.AsRejection(err)
	if !ok {
		return err
	}
	reply.Violations = make([]ViolationReply, len(rej.Violations))
	for i, v := range rej.Violations {
		reply.Violations[i] = ViolationReply{
			Kind:   v.Kind.String(),
			Msg:    v.Msg,
			Line:   v.Pos.Line,
			Column: v.Pos.Column,
		}
	}
	return nil
}

// EncoderArgs are arguments for Encode
type EncoderArgs struct {
	Data     string              `json:"data"`
	Encoding formatting.Encoding `json:"encoding"`
}

// EncoderReply is the reply from Encoder
type EncoderReply struct {
	Bytes    string              `json:"bytes"`
	Encoding formatting.Encoding `json:"encoding"`
}

// Encode returns the encoded data
func (ss *StaticService) Encode(_ *http.Request, args *EncoderArgs, reply *EncoderReply) error {
	bytes, err := formatting.Encode(args.Encoding, []byte(args.Data))
	if err != nil {
		return fmt.Errorf("couldn't encode data as string: %w", err)
	}
	reply.Bytes = bytes
	reply.Encoding = args.Encoding
	return nil
}

// DecoderArgs are arguments for Decode
type DecoderArgs struct {
	Bytes    string              `json:"bytes"`
	Encoding formatting.Encoding `json:"encoding"`
}

// DecoderReply is the reply from Decoder
type DecoderReply struct {
	Data     string              `json:"data"`
	Encoding formatting.Encoding `json:"encoding"`
}

// Decode returns the decoded data
func (ss *StaticService) Decode(_ *http.Request, args *DecoderArgs, reply *DecoderReply) error {
	bytes, err := formatting.Decode(args.Encoding, args.Bytes)
	if err != nil {
		return fmt.Errorf("couldn't decode data as string: %w", err)
	}
	reply.Data = string(bytes)
	reply.Encoding = args.Encoding
	return nil
}
